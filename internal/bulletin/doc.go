// Package bulletin models the packets that make up a bulletin and the zip
// bundle clients upload and download.
//
// A bulletin is a signed header packet plus the data packets it references.
// Every packet travels in a signed CBOR envelope; the bundle is a zip archive
// with one entry per packet, named by the packet's local id.
package bulletin
