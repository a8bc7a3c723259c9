// Package seedhandler serves master seed initialization.
//
//	GET  /api/entropy/seed
//	POST /api/entropy/seed   (signed, admin)
package seedhandler
