// Package storehandler serves the encrypted value store over HTTP.
//
//	GET  /api/store
//	POST /api/store/values                        (signed)
//	POST /api/store/batch                         (signed)
//	GET  /api/store/values/{key}
//	GET  /api/store/values/{key}/status
//	GET  /api/store/values/{key}/allowed/{user}
//
// Setting request_id on a write routes it through the entropy gate.
package storehandler
