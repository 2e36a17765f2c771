/*
Package vsfs implements a very simple file system in pure Go. A volume is a
single image file split into fixed-size blocks: a reserved block, a flat
directory, a linked allocation table and the data region. Files can be
created, deleted, read from the start and appended to, with at most 16 files
open at a time.
*/
package vsfs
