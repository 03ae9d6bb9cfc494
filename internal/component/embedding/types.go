package embedding

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)
