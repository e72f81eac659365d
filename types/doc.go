// Package types provides the shared type definitions for the agentcore
// orchestration engine: workflow topologies, execution statuses, memory
// categories, the agent capability contract, and structured errors.
//
// All other agentcore packages depend on types; types depends on nothing
// but the standard library.
package types
