// Package workflow implements the execution engine for declarative
// multi-agent workflows. A workflow's topology (sequential, parallel,
// conditional, or mixed-stage) decides how its bound agents are invoked;
// the engine handles step lifecycle, retries, persistence, and event
// emission uniformly across topologies.
//
// Agent invocations are the only suspension points; parallel stages fan
// out through goroutines and join before the execution proceeds. Pause,
// resume, and cancel are cooperative: they gate further step dispatch and
// never terminate an in-flight agent call.
package workflow
