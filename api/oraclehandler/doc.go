// Package oraclehandler serves the entropy oracle over HTTP and provides the
// matching client.
//
//	GET  /api/oracle/fee
//	PUT  /api/oracle/fee                              (signed, admin)
//	POST /api/oracle/requests                         (signed)
//	GET  /api/oracle/requests/pending
//	GET  /api/oracle/requests/{request_id}
//	GET  /api/oracle/requests/{request_id}/value
//	POST /api/oracle/requests/{request_id}/fulfill    (signed, fulfiller)
package oraclehandler
