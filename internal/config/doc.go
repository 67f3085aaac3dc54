// Package config loads the launch values and engine settings for an RTE
// session.
//
// Settings are layered: Default, then an optional file (CUE or YAML),
// then SCORMRTE_* environment variables. The merged result is validated
// before it is turned into rte options.
//
// A CUE file is unified with the embedded #Config schema, so typos and
// out-of-vocabulary values fail with a position. YAML files are decoded
// strictly: unknown keys are errors.
package config
