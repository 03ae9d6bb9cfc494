package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var AppConfigInstance = &AppConfig{}

// InitConfig 初始化配置
func InitConfig() {
	// 加载配置
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	// 监听配置变化
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		if err := viper.Unmarshal(AppConfigInstance); err != nil {
			log.Printf("loadConfig failed, unmarshal config err: %v", err)
		}
	})

	// 解析配置
	if err := viper.Unmarshal(AppConfigInstance); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	applyDefaults(AppConfigInstance)
}

// GetConfig 获取配置
func GetConfig() *AppConfig {
	return AppConfigInstance
}

// applyDefaults 补全未配置的关键默认值
func applyDefaults(cfg *AppConfig) {
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 4
	}
	if cfg.Worker.MaxAttempts <= 0 {
		cfg.Worker.MaxAttempts = 5
	}
	if cfg.Worker.RetryDelaySeconds <= 0 {
		cfg.Worker.RetryDelaySeconds = 2
	}
	if cfg.Worker.EmbedBatchSize <= 0 {
		cfg.Worker.EmbedBatchSize = 16
	}
	if cfg.Worker.ShutdownGraceSeconds <= 0 {
		cfg.Worker.ShutdownGraceSeconds = 30
	}
	if cfg.Retrieval.RecallLimit <= 0 {
		cfg.Retrieval.RecallLimit = 1024
	}
	if cfg.Retrieval.FinalLimit <= 0 {
		cfg.Retrieval.FinalLimit = 5
	}
	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.OverlapSize <= 0 {
		cfg.RAG.OverlapSize = 100
	}
	if cfg.RAG.MaxChunkSize <= 0 {
		cfg.RAG.MaxChunkSize = 2048
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = "kb"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "kbengine:"
	}
	if cfg.Milvus.IDMaxLength <= 0 {
		cfg.Milvus.IDMaxLength = 128
	}
	if cfg.Milvus.ContentMaxLength <= 0 {
		cfg.Milvus.ContentMaxLength = 8192
	}
	if cfg.Milvus.DocIDMaxLength <= 0 {
		cfg.Milvus.DocIDMaxLength = 64
	}
	if cfg.Milvus.DocNameMaxLength <= 0 {
		cfg.Milvus.DocNameMaxLength = 256
	}
	if cfg.Milvus.KbIDMaxLength <= 0 {
		cfg.Milvus.KbIDMaxLength = 64
	}
}
