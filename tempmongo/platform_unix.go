//go:build unix

package tempmongo

const socketsSupported = true
