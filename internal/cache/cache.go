package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"noticeboard/internal/model"
)

// KeyPrefix 公告列表缓存键前缀
const KeyPrefix = "notices:list:"

// ResultCache 公告列表查询结果缓存
//
// 缓存故障不应影响请求：Get 出错视为未命中，Put/EvictAll 的错误由实现记录日志。
type ResultCache interface {
	Get(ctx context.Context, key string) (*model.Page[model.NoticeSummary], bool)
	Put(ctx context.Context, key string, page *model.Page[model.NoticeSummary])
	EvictAll(ctx context.Context)
}

type keyDate struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type keySort struct {
	Field     string `json:"f"`
	Direction string `json:"d"`
}

type keyPayload struct {
	Filter     string    `json:"q"`
	SearchType string    `json:"t"`
	Start      *keyDate  `json:"s,omitempty"`
	End        *keyDate  `json:"e,omitempty"`
	Offset     int       `json:"o"`
	Limit      int       `json:"l"`
	Sort       []keySort `json:"sort,omitempty"`
}

// Key 根据检索条件和分页参数生成缓存键，等价的条件得到相同的键
func Key(cond model.SearchCondition, page model.PageRequest) string {
	p := keyPayload{
		Filter:     strings.ToLower(strings.TrimSpace(cond.Filter)),
		SearchType: string(cond.SearchType),
		Offset:     page.Offset,
		Limit:      page.Limit,
	}
	if p.SearchType == "" {
		p.SearchType = string(model.SearchTitleContent)
	}
	if p.Filter == "" {
		// 没有关键字时检索类型不影响结果
		p.SearchType = ""
	}
	if cond.StartDate != nil {
		p.Start = dayRange(*cond.StartDate)
	}
	if cond.EndDate != nil {
		p.End = dayRange(*cond.EndDate)
	}
	for _, s := range page.Sort {
		p.Sort = append(p.Sort, keySort{
			Field:     strings.TrimSpace(s.Field),
			Direction: strings.ToUpper(strings.TrimSpace(string(s.Direction))),
		})
	}

	data, _ := json.Marshal(p)
	sum := blake2b.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:])
}

func dayRange(d time.Time) *keyDate {
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).UTC()
	return &keyDate{
		From: start.Format(time.RFC3339),
		To:   start.Add(24 * time.Hour).Format(time.RFC3339),
	}
}
