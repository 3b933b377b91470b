package domain

// State is the position of an owner inside the settings conversation.
type State string

const (
	StateSelectingSetting State = "selecting_setting"
	StateModelParameters  State = "model_parameters"
	StateMemorySettings   State = "memory_settings"
	StateTemperature      State = "temperature"
	StateDone             State = "done"
)
