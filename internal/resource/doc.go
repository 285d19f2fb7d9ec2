// Package resource bounds the cost of loading databases into memory.
//
// A Controller tracks bytes held by fully buffered databases against an
// optional hard limit and throttles how fast those bytes are read from disk.
// One Controller may be shared by several readers so that they draw from a
// common budget. A nil *Controller is valid and imposes no limits.
package resource
