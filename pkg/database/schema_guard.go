package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaGuard 启动时的增量结构校正
// 只做可重复执行的加法变更：补可空列、补唯一索引，不删不改
type SchemaGuard struct {
	db      *gorm.DB
	log     *zap.Logger
	columns []columnSpec
	indexes []indexSpec
}

type columnSpec struct {
	model interface{}
	field string
}

type indexSpec struct {
	model interface{}
	name  string
}

// GuardReport 本次实际执行的变更
type GuardReport struct {
	AddedColumns   []string
	CreatedIndexes []string
}

// Changed 是否有变更
func (r *GuardReport) Changed() bool {
	return len(r.AddedColumns) > 0 || len(r.CreatedIndexes) > 0
}

// NewSchemaGuard 创建结构校正器
func NewSchemaGuard(db *gorm.DB, log *zap.Logger) *SchemaGuard {
	return &SchemaGuard{db: db, log: log.Named("schema")}
}

// Column 登记一个可空列，field 为模型字段名
func (g *SchemaGuard) Column(model interface{}, field string) *SchemaGuard {
	g.columns = append(g.columns, columnSpec{model: model, field: field})
	return g
}

// Index 登记一个索引，name 为模型 tag 中声明的索引名
func (g *SchemaGuard) Index(model interface{}, name string) *SchemaGuard {
	g.indexes = append(g.indexes, indexSpec{model: model, name: name})
	return g
}

// Ensure 逐项检查并补齐，已存在的跳过
func (g *SchemaGuard) Ensure(ctx context.Context) (*GuardReport, error) {
	start := time.Now()
	report := &GuardReport{}
	migrator := g.db.WithContext(ctx).Migrator()

	for _, c := range g.columns {
		table, nullable, err := g.describe(c.model, c.field)
		if err != nil {
			return report, err
		}
		if !migrator.HasTable(c.model) {
			return report, fmt.Errorf("表 %s 不存在", table)
		}
		if migrator.HasColumn(c.model, c.field) {
			continue
		}
		if !nullable {
			return report, fmt.Errorf("列 %s.%s 非空，不能在线补齐", table, c.field)
		}
		if err := migrator.AddColumn(c.model, c.field); err != nil {
			return report, fmt.Errorf("添加列 %s.%s 失败: %w", table, c.field, err)
		}
		report.AddedColumns = append(report.AddedColumns, table+"."+c.field)
		g.log.Info("已添加列", zap.String("table", table), zap.String("field", c.field))
	}

	for _, idx := range g.indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := migrator.CreateIndex(idx.model, idx.name); err != nil {
			return report, fmt.Errorf("创建索引 %s 失败: %w", idx.name, err)
		}
		report.CreatedIndexes = append(report.CreatedIndexes, idx.name)
		g.log.Info("已创建索引", zap.String("index", idx.name))
	}

	g.log.Info("结构校正完成",
		zap.Int("columns_added", len(report.AddedColumns)),
		zap.Int("indexes_created", len(report.CreatedIndexes)),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

func (g *SchemaGuard) describe(model interface{}, field string) (string, bool, error) {
	stmt := &gorm.Statement{DB: g.db}
	if err := stmt.Parse(model); err != nil {
		return "", false, fmt.Errorf("解析模型失败: %w", err)
	}
	f := stmt.Schema.LookUpField(field)
	if f == nil {
		return stmt.Schema.Table, false, fmt.Errorf("模型 %s 没有字段 %s", stmt.Schema.Name, field)
	}
	return stmt.Schema.Table, !f.NotNull && !f.PrimaryKey, nil
}
