package timetable

import (
	"fmt"
	"strings"
	"time"

	"dinayojana/internal/intake"
)

const (
	LabelMorningBreak = "Morning Break"
	LabelLunchBreak   = "Lunch Break"

	// DefaultPeriodsPerDay 未回答每日节数时使用
	DefaultPeriodsPerDay = 6
)

// Status 课表审核状态
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

var weekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// 未填写科目时的兜底科目
var defaultSubjects = []string{"Mathematics", "Physics", "Computer Science", "English"}

// Grid day → period → 标签
type Grid map[string]map[string]string

// Metadata 课表元数据：回答记录副本 + 生成信息
type Metadata struct {
	intake.AnswerRecord
	CreatedAt time.Time `json:"created_at"`
	Days      []string  `json:"days"`
	Periods   []string  `json:"periods"`
	Status    Status    `json:"status"`
}

// Schedule 生成的周课表
type Schedule struct {
	Structure Grid     `json:"structure"`
	Metadata  Metadata `json:"metadata"`
}

// Days 固定的六天（周一至周六）
func Days() []string {
	out := make([]string, len(weekDays))
	copy(out, weekDays)
	return out
}

// DefaultSubjects 兜底科目副本
func DefaultSubjects() []string {
	out := make([]string, len(defaultSubjects))
	copy(out, defaultSubjects)
	return out
}

// PeriodLabels 生成 "Period 1".."Period n"；n ≤ 0 时使用默认节数
func PeriodLabels(n int) []string {
	if n <= 0 {
		n = DefaultPeriodsPerDay
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("Period %d", i+1)
	}
	return labels
}

// IsMorningBreakSlot 节次标签含字符 "3" 且记录了非零上午休息时长。
// 按子串匹配会同时命中 "Period 13"、"Period 23" 等，此行为保持不变。
func IsMorningBreakSlot(label string, rec intake.AnswerRecord) bool {
	return strings.Contains(label, "3") && positive(rec.MorningBreak)
}

// IsLunchBreakSlot 节次标签含字符 "5" 且记录了非零午休时长（同样为子串匹配）
func IsLunchBreakSlot(label string, rec intake.AnswerRecord) bool {
	return strings.Contains(label, "5") && positive(rec.LunchBreak)
}

// Synthesize 根据完整的回答记录生成课表。
// 每个单元格：先判断两条固定休息规则，否则从科目列表中均匀随机选取。
// 不考虑课时总量、双节课、实验时长或偏好时段，也不做冲突检测。
func Synthesize(rec intake.AnswerRecord, rng intake.Rand, now time.Time) Schedule {
	periodsPerDay := DefaultPeriodsPerDay
	if rec.PeriodsPerDay != nil {
		periodsPerDay = *rec.PeriodsPerDay
	}
	periods := PeriodLabels(periodsPerDay)

	subjects := rec.Subjects
	if len(subjects) == 0 {
		subjects = defaultSubjects
	}

	grid := make(Grid, len(weekDays))
	for _, day := range weekDays {
		row := make(map[string]string, len(periods))
		for _, period := range periods {
			switch {
			case IsMorningBreakSlot(period, rec):
				row[period] = LabelMorningBreak
			case IsLunchBreakSlot(period, rec):
				row[period] = LabelLunchBreak
			default:
				row[period] = subjects[rng.IntN(len(subjects))]
			}
		}
		grid[day] = row
	}

	return Schedule{
		Structure: grid,
		Metadata: Metadata{
			AnswerRecord: rec.Clone(),
			CreatedAt:    now,
			Days:         Days(),
			Periods:      periods,
			Status:       StatusPendingApproval,
		},
	}
}

// Table 以 [节次][天] 的行序展开课表，首行为表头，供导出使用
func (s Schedule) Table() [][]string {
	days := s.Metadata.Days
	if len(days) == 0 {
		days = weekDays
	}
	periods := s.Metadata.Periods

	rows := make([][]string, 0, len(periods)+1)
	header := append([]string{"Time/Day"}, days...)
	rows = append(rows, header)
	for _, period := range periods {
		row := make([]string, 0, len(days)+1)
		row = append(row, period)
		for _, day := range days {
			row = append(row, s.Structure[day][period])
		}
		rows = append(rows, row)
	}
	return rows
}

// IsBreak 单元格是否为休息时段
func IsBreak(label string) bool {
	return label == LabelMorningBreak || label == LabelLunchBreak
}

func positive(p *int) bool {
	return p != nil && *p != 0
}
