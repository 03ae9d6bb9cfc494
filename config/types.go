package config

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// RedisConfig Redis配置（任务队列）
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// WorkerConfig 解析Worker配置
type WorkerConfig struct {
	Count                int `mapstructure:"count"`                  // 并发worker数量
	MaxAttempts          int `mapstructure:"max_attempts"`           // 单任务最大尝试次数
	RetryDelaySeconds    int `mapstructure:"retry_delay_seconds"`    // 重试间隔
	EmbedBatchSize       int `mapstructure:"embed_batch_size"`       // 向量化批大小
	ShutdownGraceSeconds int `mapstructure:"shutdown_grace_seconds"` // 优雅退出等待时间
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	RecallLimit    int     `mapstructure:"recall_limit"`    // 粗排召回上限
	FinalLimit     int     `mapstructure:"final_limit"`     // 精排返回数量
	ScoreThreshold float64 `mapstructure:"score_threshold"` // 召回分数阈值，0表示不过滤
}

// RerankConfig 重排序模型配置
type RerankConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// MinioConfig Minio配置
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
}

// MilvusConfig Milvus向量数据库配置
type MilvusConfig struct {
	Address          string  `mapstructure:"address"`
	CollectionPrefix string  `mapstructure:"collection_prefix"` // 集合名前缀，集合按知识库ID派生
	IndexType        string  `mapstructure:"index_type"`
	MetricType       string  `mapstructure:"metric_type"`
	Nlist            int     `mapstructure:"nlist"`
	Nprobe           int     `mapstructure:"nprobe"`
	SparseDropRatio  float64 `mapstructure:"sparse_drop_ratio"`
	// 字段最大长度配置
	IDMaxLength      int64 `mapstructure:"id_max_length"`
	ContentMaxLength int64 `mapstructure:"content_max_length"`
	DocIDMaxLength   int64 `mapstructure:"doc_id_max_length"`
	DocNameMaxLength int64 `mapstructure:"doc_name_max_length"`
	KbIDMaxLength    int64 `mapstructure:"kb_id_max_length"`
}

// GetMetricType 获取度量类型
func (m *MilvusConfig) GetMetricType() entity.MetricType {
	var metricType entity.MetricType
	switch m.MetricType {
	case "L2":
		metricType = entity.L2 // 欧几里得距离：测量向量间的直线距离
	case "IP":
		metricType = entity.IP // 内积距离：适合已归一化的向量，计算效率高
	default:
		metricType = entity.COSINE // 余弦相似度：测量向量方向的相似性，适合文本语义搜索
	}
	return metricType
}

// GetMilvusIndex 根据配置构建稠密向量索引
func (m *MilvusConfig) GetMilvusIndex() (entity.Index, error) {
	// 选择索引类型的距离度量方式
	metricType := m.GetMetricType()

	var (
		idx entity.Index
		err error
	)
	if m.Nlist <= 0 {
		m.Nlist = 128 // 为空，取默认值
	}

	switch m.IndexType {
	case "IVF_FLAT":
		// IVF_FLAT: 倒排文件索引 + 原始向量存储
		// nlist: 聚类数量，通常设置为 sqrt(n) 到 4*sqrt(n)，n为向量数量
		idx, err = entity.NewIndexIvfFlat(metricType, m.Nlist)
	case "IVF_SQ8":
		// IVF_SQ8: 倒排文件索引 + 标量量化压缩存储（8位），省内存但有轻微精度损失
		idx, err = entity.NewIndexIvfSQ8(metricType, m.Nlist)
	case "HNSW":
		// HNSW: 层次可导航小世界图索引
		// M=8, efConstruction=40 为经验值，需要按数据规模调优
		idx, err = entity.NewIndexHNSW(metricType, 8, 40)
	default:
		// 默认使用IVF_FLAT，兼顾搜索精度和性能
		idx, err = entity.NewIndexIvfFlat(metricType, m.Nlist)
	}
	return idx, err
}

// GetSearchParam 构建稠密向量搜索参数
func (m *MilvusConfig) GetSearchParam() (entity.SearchParam, error) {
	nprobe := m.Nprobe
	if nprobe <= 0 {
		nprobe = 16
	}
	switch m.IndexType {
	case "HNSW":
		return entity.NewIndexHNSWSearchParam(64)
	default:
		return entity.NewIndexIvfFlatSearchParam(nprobe)
	}
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // local/oss/minio
	Local LocalConfig `mapstructure:"local"`
	OSS   OSSConfig   `mapstructure:"oss"`
	Minio MinioConfig `mapstructure:"minio"`
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"` // 本地存储根目录（如 /data/storage）
}

// OSSConfig OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           string   `mapstructure:"max_age"` // 使用字符串表示时间，便于配置
}

// RAGConfig 默认分块配置（文档未指定parser config时使用）
type RAGConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	OverlapSize  int `mapstructure:"overlap_size"`
	MaxChunkSize int `mapstructure:"max_chunk_size"` // 单块内容硬上限
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig 应用配置
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Milvus    MilvusConfig    `mapstructure:"milvus"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Log       LogConfig       `mapstructure:"log"`
}
