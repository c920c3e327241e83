// Package mediatypes classifies files by extension into image, video and
// audio types and provides the bit masks used to enable them.
package mediatypes
