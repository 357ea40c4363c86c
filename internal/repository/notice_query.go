package repository

import (
	"strings"
	"time"

	"noticeboard/internal/model"
	"noticeboard/pkg/apperror"
)

// 允许排序的字段，key 同时接受接口字段名与列名
var sortColumns = map[string]string{
	"id":         "id",
	"title":      "title",
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
	"viewCount":  "view_count",
	"view_count": "view_count",
	"startDate":  "start_date",
	"start_date": "start_date",
	"endDate":    "end_date",
	"end_date":   "end_date",
}

// LIKE 转义字符，避免 MySQL 对反斜杠的特殊处理
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// SearchQuery 由检索条件生成的查询，列表与计数共用同一个 Where/Args
type SearchQuery struct {
	Where   string
	Args    []interface{}
	OrderBy string
	Limit   int
	Offset  int
}

// BuildSearchQuery 把检索条件与分页参数转换为 SQL 片段
func BuildSearchQuery(cond model.SearchCondition, page model.PageRequest) (*SearchQuery, error) {
	if page.Limit <= 0 || page.Offset < 0 {
		return nil, apperror.Invalid("分页参数错误")
	}

	clauses := []string{"is_deleted = ?"}
	args := []interface{}{false}

	searchType := cond.SearchType
	if searchType == "" {
		searchType = model.SearchTitleContent
	}

	if filter := strings.TrimSpace(cond.Filter); filter != "" {
		pattern := "%" + likeReplacer.Replace(strings.ToLower(filter)) + "%"
		switch searchType {
		case model.SearchTitle:
			clauses = append(clauses, "LOWER(title) LIKE ? ESCAPE '"+likeEscape+"'")
			args = append(args, pattern)
		case model.SearchTitleContent:
			clauses = append(clauses, "(LOWER(title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(content) LIKE ? ESCAPE '"+likeEscape+"')")
			args = append(args, pattern, pattern)
		default:
			return nil, apperror.Invalid("不支持的检索类型: %s", cond.SearchType)
		}
	}

	var from, to time.Time
	if cond.StartDate != nil {
		from = StartOfDay(*cond.StartDate)
		clauses = append(clauses, "created_at >= ?")
		args = append(args, from)
	}
	if cond.EndDate != nil {
		to = EndOfDay(*cond.EndDate)
		clauses = append(clauses, "created_at <= ?")
		args = append(args, to)
	}
	if cond.StartDate != nil && cond.EndDate != nil && to.Before(from) {
		return nil, apperror.Invalid("开始日期不能晚于结束日期")
	}

	orderBy, err := buildOrderBy(page.Sort)
	if err != nil {
		return nil, err
	}

	return &SearchQuery{
		Where:   strings.Join(clauses, " AND "),
		Args:    args,
		OrderBy: orderBy,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}, nil
}

// buildOrderBy 无显式排序时按 created_at 倒序，最后总是追加 id 保证分页稳定
func buildOrderBy(sorts []model.SortOrder) (string, error) {
	if len(sorts) == 0 {
		return "created_at DESC, id DESC", nil
	}

	parts := make([]string, 0, len(sorts)+1)
	seen := make(map[string]bool, len(sorts))
	for _, s := range sorts {
		col, ok := sortColumns[strings.TrimSpace(s.Field)]
		if !ok {
			return "", apperror.Invalid("不支持的排序字段: %s", s.Field)
		}
		if seen[col] {
			continue
		}
		seen[col] = true

		dir := model.Direction(strings.ToUpper(strings.TrimSpace(string(s.Direction))))
		switch dir {
		case "", model.Asc:
			dir = model.Asc
		case model.Desc:
		default:
			return "", apperror.Invalid("不支持的排序方向: %s", s.Direction)
		}
		parts = append(parts, col+" "+string(dir))
	}
	if !seen["id"] {
		parts = append(parts, "id DESC")
	}
	return strings.Join(parts, ", "), nil
}

// SelectSQL 分页查询语句
func (q *SearchQuery) SelectSQL(columns string) (string, []interface{}) {
	query := "SELECT " + columns + " FROM notices WHERE " + q.Where +
		" ORDER BY " + q.OrderBy + " LIMIT ? OFFSET ?"
	args := make([]interface{}, 0, len(q.Args)+2)
	args = append(args, q.Args...)
	args = append(args, q.Limit, q.Offset)
	return query, args
}

// CountSQL 与 SelectSQL 使用相同条件的计数语句
func (q *SearchQuery) CountSQL() (string, []interface{}) {
	args := make([]interface{}, len(q.Args))
	copy(args, q.Args)
	return "SELECT COUNT(*) FROM notices WHERE " + q.Where, args
}

// StartOfDay 当天 00:00:00.000，转换为 UTC
func StartOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).UTC()
}

// EndOfDay 当天 23:59:59.999，转换为 UTC
func EndOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), d.Location()).UTC()
}
