// Package envelope decodes the response wrapper returned by the pybill API.
//
// Every response body is expected to be a JSON object of the form:
//
//	{"success": true, "value": ..., "message": "optional"}
//
// Older API revisions report failure text under "errmsg" instead of
// "message". Both are decoded; Codec.ErrorField picks which one wins when
// both are present.
//
// The codec is a pure transformation. It never validates the shape of value;
// that is left to the query layer. A body that is not a JSON object yields a
// *DecodeError.
//
// An envelope whose success field is missing entirely reports StateAbsent.
// Callers decide what that means; the dispatcher ignores such responses.
package envelope
