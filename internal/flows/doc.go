// Package flows contains the orchestrators behind the Engine's account
// operations: registration, login and password reset.
//
// Each Run* function takes a dependency struct of plain function fields and
// returns a result without side effects beyond those dependencies. The root
// engine builds the dependency sets once, which keeps the Engine type thin and
// lets every branch be tested with fakes.
//
// # Architecture boundaries
//
// Flows coordinate the credential store, attempt limiters, password hasher,
// MFA manager, session manager, audit and metrics. They do not own any of
// those resources.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package (import cycle).
//   - Perform I/O directly. All I/O goes through dependency functions.
package flows
