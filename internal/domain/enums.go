// Package domain defines the core domain models for the SafeBite orchestrator.
package domain

// StepStatus represents the status of a step event.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusError     StepStatus = "error"
)

// InputType represents the kind of input a run was started with.
type InputType string

const (
	InputTypeText    InputType = "text"
	InputTypeImage   InputType = "image"
	InputTypeBarcode InputType = "barcode"
	InputTypeRecipe  InputType = "recipe"
	InputTypeVoice   InputType = "voice"
)

// SafetyFlag is the coarse safety verdict derived from a safety score.
type SafetyFlag string

const (
	SafetyFlagUnsafe  SafetyFlag = "Unsafe"
	SafetyFlagCaution SafetyFlag = "Caution"
	SafetyFlagLowRisk SafetyFlag = "Low risk"
)

// RunMode selects the pipeline used for a run.
type RunMode string

const (
	RunModeLocal RunMode = "local"
	RunModeAgent RunMode = "agent"
)

// MessageType represents the type of a message delivered to stream observers.
type MessageType string

const (
	MessageTypeStep  MessageType = "step"
	MessageTypeFinal MessageType = "final"
	MessageTypeError MessageType = "error"
)

// Step identifiers emitted by the orchestrator.
const (
	StepIntent         = "intent"
	StepProxy          = "proxy"
	StepBarcode        = "barcode"
	StepRecall         = "recall"
	StepSpoilage       = "spoilage"
	StepSustainability = "sustainability"
	StepReasoning      = "reasoning"
	StepFinalizing     = "finalizing"
	StepError          = "error"
)
