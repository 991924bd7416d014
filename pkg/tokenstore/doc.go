// Package tokenstore groups the buffer.TokenStore backends: redisstore for a
// shared Redis key, cookiestore for a browser session and pgstore for a
// Postgres table. The in-memory store lives in package buffer. Chain layers
// several of them.
package tokenstore
