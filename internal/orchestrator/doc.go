// Package orchestrator is the single entry point transports use to drive a
// squadron mission.
//
// [Facade] validates caller input and composes the team registry and
// deployer, the message bus, the task claim store and the heartbeat
// tracker. It holds no state of its own. [New] is the composition root that
// builds every component from a [config.Config]; each CLI invocation and
// each `squadron serve` process builds exactly one.
package orchestrator
