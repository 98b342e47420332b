// Package resource budgets the resources a clustering run may consume.
//
// A Controller tracks the bytes reserved by shared windows, bounds the number
// of concurrent blob transfers, and throttles blob IO throughput. A nil
// *Controller is valid and imposes no limits.
package resource
