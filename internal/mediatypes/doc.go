// Package mediatypes classifies files by extension and MIME type.
package mediatypes
