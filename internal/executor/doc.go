// Package executor implements the execution strategies of kubexec: running a
// target command or script either inside an existing pod via the exec
// subresource, or inside a one-shot Job materialized for the invocation.
//
// The package owns target classification (command string vs. script file),
// volume mount parsing, resource spec validation, unique job naming and Job
// manifest construction. Cluster access goes through the k8s.Client
// interface so the strategies are testable against a fake clientset.
package executor
