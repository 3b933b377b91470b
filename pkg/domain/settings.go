package domain

const (
	DefaultModel         = "gpt-3.5-turbo"
	DefaultTemperature   = float32(0.5)
	DefaultMaxTokens     = 1024
	DefaultMemoryEnabled = true

	MinTemperature = float32(0)
	MaxTemperature = float32(2)
)

var SupportedModels = []string{
	"gpt-3.5-turbo",
	"gpt-4o-mini",
	"gpt-4o",
}

var (
	MaxTokensOptions  = []int{256, 512, 1024, 2048}
	MemorySizeOptions = []int{1024, 2048, 4096, 8192}
)

// Settings are the model and memory parameters of a single owner.
type Settings struct {
	OwnerID       int64
	Model         string
	Temperature   float32
	MaxTokens     int
	MemoryEnabled bool
	MemorySize    int
}

func DefaultSettings(ownerID int64, memorySize int) Settings {
	return Settings{
		OwnerID:       ownerID,
		Model:         DefaultModel,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		MemoryEnabled: DefaultMemoryEnabled,
		MemorySize:    memorySize,
	}
}
