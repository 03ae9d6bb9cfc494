package vector

import "strings"

// CollectionName 由知识库ID确定性派生集合名，任何组件无需额外查找即可定位同一集合
// Milvus集合名只允许字母、数字与下划线
func CollectionName(prefix, kbID string) string {
	sanitized := strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(kbID)
	return prefix + "_" + sanitized
}
