// Package upload reassembles bulletin bundles from base64 chunks and commits
// them once the final byte arrives.
//
// Chunks for one bulletin must arrive strictly in order. Any inconsistency
// (wrong offset, oversize chunk, overflow, bad base64) discards the partial
// file so the client restarts from offset zero.
package upload
