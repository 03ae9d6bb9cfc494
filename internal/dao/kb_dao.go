package dao

import (
	"fmt"

	"kb-engine/internal/model"

	"gorm.io/gorm"
)

type KnowledgeBaseDao interface {
	// 知识库相关
	CreateKB(kb *model.KnowledgeBase) error                       // 创建知识库
	DeleteKB(id string) error                                     // 删除知识库
	CountKBs() (int64, error)                                     // 统计知识库数量
	ListKBs(page int, pageSize int) ([]model.KnowledgeBase, error) // 获取知识库列表
	GetKBByID(kbID string) (*model.KnowledgeBase, error)          // 获取知识库

	// 文档相关
	CreateDocument(doc *model.Document) error                           // 创建文档
	UpdateDocument(doc *model.Document) error                           // 更新文档
	GetDocumentByID(docID string) (*model.Document, error)              // 获取文档
	CountDocs(kbID string) (int64, error)                               // 统计文档数量
	ListDocs(kbID string, page int, size int) ([]model.Document, error) // 获取文档列表
	GetAllDocsByKBID(kbID string) ([]model.Document, error)             // 获取知识库下所有文档
	DeleteDocs(docIDs []string) error                                   // 批量删除文档
}

type kbDao struct {
	db *gorm.DB
}

func NewKnowledgeBaseDao(db *gorm.DB) KnowledgeBaseDao { return &kbDao{db: db} }

func (kd *kbDao) CreateKB(kb *model.KnowledgeBase) error {
	return kd.db.Create(kb).Error
}

func (kd *kbDao) GetKBByID(kbID string) (*model.KnowledgeBase, error) {
	kb := &model.KnowledgeBase{}
	if err := kd.db.Where("id = ?", kbID).First(kb).Error; err != nil {
		return nil, err
	}
	return kb, nil
}

func (kd *kbDao) CountKBs() (int64, error) {
	var total int64
	if err := kd.db.Model(&model.KnowledgeBase{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (kd *kbDao) ListKBs(page int, pageSize int) ([]model.KnowledgeBase, error) {
	var kbs []model.KnowledgeBase
	query := kd.db.Order("created_at desc")

	offset := (page - 1) * pageSize
	query = query.Offset(offset).Limit(pageSize)

	if err := query.Find(&kbs).Error; err != nil {
		return nil, err
	}
	return kbs, nil
}

func (kd *kbDao) DeleteKB(id string) error {
	return kd.db.Where("id = ?", id).Delete(&model.KnowledgeBase{}).Error
}

func (kd *kbDao) CreateDocument(doc *model.Document) error {
	return kd.db.Create(doc).Error
}

func (kd *kbDao) UpdateDocument(doc *model.Document) error {
	if err := kd.db.Save(doc).Error; err != nil {
		return fmt.Errorf("更新文档失败: %w", err)
	}
	return nil
}

func (kd *kbDao) GetDocumentByID(docID string) (*model.Document, error) {
	doc := &model.Document{}
	if err := kd.db.Where("id = ?", docID).First(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (kd *kbDao) CountDocs(kbID string) (int64, error) {
	var total int64
	query := kd.db.Model(&model.Document{}).Where("knowledge_base_id = ?", kbID)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (kd *kbDao) ListDocs(kbID string, page int, size int) ([]model.Document, error) {
	var docs []model.Document
	query := kd.db.Where("knowledge_base_id = ?", kbID).Order("created_at asc")

	offset := (page - 1) * size
	query = query.Offset(offset).Limit(size)
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (kd *kbDao) GetAllDocsByKBID(kbID string) ([]model.Document, error) {
	var docs []model.Document
	if err := kd.db.Where("knowledge_base_id = ?", kbID).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("获取文档失败: %w", err)
	}
	return docs, nil
}

func (kd *kbDao) DeleteDocs(docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}
	if err := kd.db.Where("id IN ?", docIDs).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("删除文档失败: %w", err)
	}
	return nil
}
