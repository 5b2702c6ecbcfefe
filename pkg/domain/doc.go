/*
Package domain contains the core domain models of the first-aid guidance engine.

It defines the read-only decision graph (Emergencies, Questions and Steps), the
per-session conversation state and the outcomes emitted for every turn. This
package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Node: A Question or Step in the decision graph of one Emergency.
  - Session: The runtime snapshot of a conversation (Emergency, Position, AwaitingAnswer).
  - Outcome: What the resolver decided to surface next (question, step, clarify, terminal).
  - Reply: The phrased text returned to the user, plus the resulting Status.
*/
package domain
