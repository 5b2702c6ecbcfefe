/*
Package session implements session access and persistence orchestration.

Every turn of a conversation and every idle expiry runs under the session's
exclusive lock (Manager.Update / Manager.WithLock). Locks are local mutexes,
optionally backed by a distributed lock so several replicas can share a store.
*/
package session
