package observability

const (
	AttrServiceName      = "service.name"
	AttrServiceVersion   = "service.version"
	AttrSkillName        = "skill.name"
	AttrToolName         = "tool.name"
	AttrRouterProfile    = "router.confidence_profile"
	AttrLLMModel         = "llm.model"
	AttrLLMTokensInput   = "llm.tokens.input"
	AttrLLMTokensOutput  = "llm.tokens.output"
	AttrErrorType        = "error.type"
	AttrStatusCode       = "http.status_code"
	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.path"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"
	AttrTaskID           = "omnikernel.task_id"

	SpanHTTPRequest     = "http.request"
	SpanSkillLoad       = "kernel.skill_load"
	SpanToolExecution   = "kernel.tool_execution"
	SpanRoute           = "router.route"
	SpanContextAssemble = "contextorch.assemble"
	SpanAgentStep       = "agentloop.step"
	SpanLLMCall         = "agentloop.llm_call"
	SpanMemoryLookup    = "memory.lookup"
	SpanHomeostasisTx   = "homeostasis.transaction"

	DefaultServiceName  = "omnikernel"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)
