// Package variant implements the self-describing tagged value used for all
// typed data interchange between the host and its adapters.
//
// A Variant carries one scalar or one N-dimensional array of a closed set of
// primitive kinds, plus an opaque escape hatch (EncodedObject) for payloads
// the generic codec cannot interpret. The wire form is a JSON envelope:
//
//	{"Type": "Double", "Value": 42.5}
//	{"Type": "Int32", "Value": [[1,2,3],[4,5,6]], "ArrayDimensions": [2,3]}
//	{"Type": "Null", "Value": null}
//
// The explicit type tag lets a receiver with no compile-time knowledge of the
// original type decode every element correctly, including recursively through
// multi-dimensional arrays. ArrayDimensions is present exactly when the value
// is an array; the product of the dimensions equals the element count.
package variant
