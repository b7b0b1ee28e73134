// Package crm authenticates against the CRM backend and performs bearer-authenticated calls.
//
// Gateway probes a fixed list of candidate login paths in order. A 404 or a transport error
// moves on to the next candidate; any other response is final.
package crm
