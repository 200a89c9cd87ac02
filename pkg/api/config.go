package api

import "time"

type (
	// NodeConfig is the per-type configuration variant carried by a node.
	// Exactly one of the typed sections is expected to be populated for
	// the node's type; the engine consumes these permissively at runtime
	// and falls back to fixed defaults for missing optional fields.
	// Structural validation happens pre-deploy, never during execution
	NodeConfig struct {
		Next      NodeID           `json:"next_node_id,omitempty"`
		Message   *MessageConfig   `json:"message,omitempty"`
		Choice    *ChoiceConfig    `json:"choice,omitempty"`
		Input     *InputConfig     `json:"input,omitempty"`
		Condition *ConditionConfig `json:"condition,omitempty"`
		Delay     *DelayConfig     `json:"delay,omitempty"`
		API       *APIConfig       `json:"api,omitempty"`
		AI        *AIConfig        `json:"ai,omitempty"`
		Loop      *LoopConfig      `json:"loop,omitempty"`
		End       *EndConfig       `json:"end,omitempty"`
		Subflow   *SubflowConfig   `json:"subflow,omitempty"`
	}

	// MessageConfig sends interpolated text and proceeds
	MessageConfig struct {
		Text string `json:"text"`
	}

	// ChoiceOption is one selectable option of a BUTTON or LIST node
	ChoiceOption struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Next  NodeID `json:"next_node_id,omitempty"`
	}

	// ChoiceConfig drives BUTTON and LIST nodes: a prompt plus options.
	// Fallback handles unmatched free text; when absent the node re-pauses
	ChoiceConfig struct {
		Prompt       string          `json:"prompt"`
		Options      []*ChoiceOption `json:"options"`
		Fallback     string          `json:"fallback_message,omitempty"`
		FallbackNext NodeID          `json:"fallback_node_id,omitempty"`
	}

	// ValidationKind selects the INPUT node's validation rule
	ValidationKind string

	// InputConfig prompts for free text and validates the reply
	InputConfig struct {
		Prompt      string         `json:"prompt"`
		Variable    Name           `json:"variable"`
		Validation  ValidationKind `json:"validation,omitempty"`
		MinLength   int            `json:"min_length,omitempty"`
		MaxLength   int            `json:"max_length,omitempty"`
		Min         *float64       `json:"min,omitempty"`
		Max         *float64       `json:"max,omitempty"`
		Pattern     string         `json:"pattern,omitempty"`
		MaxRetries  int            `json:"max_retries,omitempty"`
		RetryPrompt string         `json:"retry_prompt,omitempty"`
		SuccessNext NodeID         `json:"success_node_id,omitempty"`
		FailureNext NodeID         `json:"failure_node_id,omitempty"`
	}

	// ConditionBranch is one entry of the legacy expression-list form
	ConditionBranch struct {
		Expression string `json:"expression"`
		Next       NodeID `json:"next_node_id"`
	}

	// ConditionConfig evaluates either the simple triple form or, when the
	// simple form is absent, the legacy ordered branch list
	ConditionConfig struct {
		Left        string             `json:"left_operand,omitempty"`
		Operator    string             `json:"operator,omitempty"`
		Right       string             `json:"right_operand,omitempty"`
		Branches    []*ConditionBranch `json:"branches,omitempty"`
		DefaultNext NodeID             `json:"default_node_id,omitempty"`
	}

	// DelayConfig pauses the session until now + duration
	DelayConfig struct {
		Duration int64  `json:"duration"`
		Unit     string `json:"unit,omitempty"`
	}

	// AuthConfig attaches credentials to an API request
	AuthConfig struct {
		Type     string `json:"type"`
		Token    string `json:"token,omitempty"`
		Username string `json:"username,omitempty"`
		Password string `json:"password,omitempty"`
		Header   string `json:"header,omitempty"`
		Value    string `json:"value,omitempty"`
	}

	// ExtractMapping copies one JSON path of a response into a variable
	ExtractMapping struct {
		Path     string `json:"path"`
		Variable Name   `json:"variable"`
	}

	// APIConfig performs an outbound HTTP call with timeout and retries
	APIConfig struct {
		Method      string            `json:"method"`
		URL         string            `json:"url"`
		Headers     map[string]string `json:"headers,omitempty"`
		Query       map[string]string `json:"query,omitempty"`
		Body        string            `json:"body,omitempty"`
		Auth        *AuthConfig       `json:"auth,omitempty"`
		TimeoutSec  int               `json:"timeout_seconds,omitempty"`
		MaxRetries  int               `json:"max_retries,omitempty"`
		StatusVar   Name              `json:"status_variable,omitempty"`
		ResponseVar Name              `json:"response_variable,omitempty"`
		ErrorVar    Name              `json:"error_variable,omitempty"`
		Extract     []*ExtractMapping `json:"extract,omitempty"`
	}

	// AIConfig performs a chat-completion call with timeout and retries
	AIConfig struct {
		Provider       string            `json:"provider,omitempty"`
		Model          string            `json:"model,omitempty"`
		SystemPrompt   string            `json:"system_prompt,omitempty"`
		UserMessage    string            `json:"user_message,omitempty"`
		IncludeHistory bool              `json:"include_history,omitempty"`
		HistoryLimit   int               `json:"history_limit,omitempty"`
		TimeoutSec     int               `json:"timeout_seconds,omitempty"`
		MaxRetries     int               `json:"max_retries,omitempty"`
		ResponseVar    Name              `json:"response_variable,omitempty"`
		RawVar         Name              `json:"raw_variable,omitempty"`
		UsageVar       Name              `json:"usage_variable,omitempty"`
		ErrorVar       Name              `json:"error_variable,omitempty"`
		Extract        []*ExtractMapping `json:"extract,omitempty"`
		Fallback       string            `json:"fallback_message,omitempty"`
	}

	// LoopMode selects the LOOP node's iteration strategy
	LoopMode string

	// LoopConfig iterates a body subgraph via loop-body/done/error edges
	LoopConfig struct {
		Mode          LoopMode `json:"mode"`
		Source        Name     `json:"source_variable,omitempty"`
		ItemVar       Name     `json:"item_variable,omitempty"`
		IndexVar      Name     `json:"index_variable,omitempty"`
		ExtractField  string   `json:"extract_field,omitempty"`
		ResultSource  Name     `json:"result_source,omitempty"`
		ResultVar     Name     `json:"result_variable,omitempty"`
		Count         int      `json:"count,omitempty"`
		Start         int      `json:"start,omitempty"`
		Step          int      `json:"step,omitempty"`
		CounterVar    Name     `json:"counter_variable,omitempty"`
		Expression    string   `json:"expression,omitempty"`
		MaxIterations int      `json:"max_iterations,omitempty"`
		OnEmpty       string   `json:"on_empty,omitempty"`
	}

	// EndConfig terminates the session, optionally with a farewell
	EndConfig struct {
		Text  string `json:"text,omitempty"`
		Close bool   `json:"close,omitempty"`
	}

	// SubflowConfig jumps into another graph's production version
	SubflowConfig struct {
		Graph GraphID `json:"graph_id"`
	}
)

const (
	ValidateText   ValidationKind = "text"
	ValidateEmail  ValidationKind = "email"
	ValidatePhone  ValidationKind = "phone"
	ValidateNumber ValidationKind = "number"
	ValidateRegex  ValidationKind = "regex"
)

const (
	LoopForEach    LoopMode = "FOR_EACH"
	LoopCount      LoopMode = "COUNT_BASED"
	LoopCondition  LoopMode = "CONDITION_BASED"
	LoopEmptyDone           = "done"
	LoopEmptyError          = "error"
)

// Runtime defaults applied when optional config fields are absent
const (
	DefaultAPITimeout       = 10 * time.Second
	DefaultAITimeout        = 30 * time.Second
	DefaultCallRetries      = 3
	DefaultInputRetries     = 3
	DefaultLoopIterations   = 100
	DefaultHistoryLimit     = 10
	DefaultDispatchIterCap  = 256
	DefaultDelayUnitSeconds = "seconds"
)

// Timeout returns the configured API timeout or its default
func (c *APIConfig) Timeout() time.Duration {
	if c.TimeoutSec > 0 {
		return time.Duration(c.TimeoutSec) * time.Second
	}
	return DefaultAPITimeout
}

// Retries returns the configured API retry count or its default
func (c *APIConfig) Retries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultCallRetries
}

// Timeout returns the configured AI timeout or its default
func (c *AIConfig) Timeout() time.Duration {
	if c.TimeoutSec > 0 {
		return time.Duration(c.TimeoutSec) * time.Second
	}
	return DefaultAITimeout
}

// Retries returns the configured AI retry count or its default
func (c *AIConfig) Retries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultCallRetries
}

// Retries returns the configured input retry bound or its default
func (c *InputConfig) Retries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultInputRetries
}

// Iterations returns the loop's hard iteration cap or its default
func (c *LoopConfig) Iterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return DefaultLoopIterations
}

// Interval converts the delay duration and unit to a time.Duration. An
// unknown or missing unit is read as seconds
func (c *DelayConfig) Interval() time.Duration {
	d := time.Duration(c.Duration)
	switch c.Unit {
	case "minutes":
		return d * time.Minute
	case "hours":
		return d * time.Hour
	case "days":
		return d * 24 * time.Hour
	default:
		return d * time.Second
	}
}
