// Package middleware wraps the session and history stores with encryption at
// rest and PII redaction.
package middleware

import "github.com/aretw0/firstaid/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// HistoryMiddleware allows wrapping a HistoryStore to add behavior.
type HistoryMiddleware func(ports.HistoryStore) ports.HistoryStore

// Chain applies mws so that the first one is the outermost.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// ChainHistory is Chain for history stores.
func ChainHistory(store ports.HistoryStore, mws ...HistoryMiddleware) ports.HistoryStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
