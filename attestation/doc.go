// Package attestation verifies attestor result bundles and turns them into
// on-chain attest() calls.
//
// A bundle returned by the attestor is untrusted. Before it is committed:
// 1. ParseResultBundle rejects anything that does not match the wire shape
// 2. BindSchema checks the bundle was produced for the requested schema
// 3. SignatureVerifier recovers the allocator and validator signers
// 4. Encode builds the AttestationCallPayload for the contract
//
// The orchestrator subpackage drives these steps for a single attempt.
package attestation
