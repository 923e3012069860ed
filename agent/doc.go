// Package agent provides the reference agent specializations. Each
// specialist contributes capability tags, an admission bound and result
// shaping; the actual work is performed by an injected ToolRunner so the
// subsystem stays independent of how tool actions are implemented.
package agent
