/*
Package ports defines the driven ports (interfaces) of the first-aid guidance engine.

These interfaces decouple the conversation core from external implementations,
allowing the engine to work with various graph databases, session stores and
language-model backends.

# Key Interfaces

  - GraphStore: The three read-only decision-graph queries (entry, branch, next).
  - Classifier: Maps free text to an emergency name.
  - Phraser / Completer: Conversational rewriting of raw payloads through an LLM.
  - StateStore / HistoryStore: Session state and conversational memory persistence.
  - DistributedLocker: Distributed locking for concurrent session access across replicas.
*/
package ports
