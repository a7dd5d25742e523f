package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"dinayojana/config"
	"dinayojana/internal/model"
	"dinayojana/internal/repository"
	"dinayojana/internal/timetable"
)

// ── 导出模块业务错误 ──

var (
	ErrExportFormat       = errors.New("不支持的导出格式")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// 导出格式
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatICS  = "ics"
	FormatHTML = "html"
)

// ExportFile 导出结果，由 Handler 层设置响应头后写出
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService 课表导出接口
//
//   - csv：表头 Time/Day + 星期，每节一行
//   - xlsx：同一网格，带标题与表头样式
//   - ics：每个非休息单元格一个按周重复的事件
//   - html：网格转为 Markdown 表格后由 goldmark 渲染，用于分享预览
type ExportService interface {
	Export(ctx context.Context, id, format, callerID, callerRole, callerDeptID string) (*ExportFile, error)
}

type exportService struct {
	cfg    *config.ExportConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.ExportConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger}
}

func (s *exportService) Export(ctx context.Context, id, format, callerID, callerRole, callerDeptID string) (*ExportFile, error) {
	if format == "" {
		format = FormatCSV
	}

	tt, err := loadVisibleTimetable(ctx, s.repo, s.logger, id, callerID, callerRole, callerDeptID)
	if err != nil {
		return nil, err
	}
	sched, err := decodeSchedule(tt)
	if err != nil {
		s.logger.Error("解析课表失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case FormatCSV:
		data, err = renderCSV(sched)
		contentType = "text/csv; charset=utf-8"
	case FormatXLSX:
		data, err = renderXLSX(tt.Name, sched)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatICS:
		data, err = renderICS(tt, sched, s.cfg)
		contentType = "text/calendar; charset=utf-8"
	case FormatHTML:
		data, err = renderHTML(tt.Name, sched)
		contentType = "text/html; charset=utf-8"
	default:
		return nil, ErrExportFormat
	}
	if err != nil {
		s.logger.Error("生成导出文件失败",
			zap.String("id", id),
			zap.String("format", format),
			zap.Error(err),
		)
		return nil, ErrExportGenerateFail
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", tt.Name, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ── CSV ──

func renderCSV(sched timetable.Schedule) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(sched.Table()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ── Excel ──

func renderXLSX(title string, sched timetable.Schedule) ([]byte, error) {
	table := sched.Table()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Timetable"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	cols := len(table[0])
	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", colName(cols-1), 20)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	breakStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "#7F7F7F"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F2F2F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(cols-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头 + 数据行，从第 2 行开始
	for r, row := range table {
		for c, value := range row {
			ref := cell(colName(c), r+2)
			f.SetCellValue(sheetName, ref, value)
			switch {
			case r == 0:
				f.SetCellStyle(sheetName, ref, ref, headerStyle)
			case timetable.IsBreak(value):
				f.SetCellStyle(sheetName, ref, ref, breakStyle)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// ── iCalendar ──

var clockRe = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)`)

// parseClock 解析 "9:00 AM" 形式的时间，返回距零点的时长
func parseClock(s string) (time.Duration, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, false
	}
	hour %= 12
	if strings.EqualFold(m[3], "PM") {
		hour += 12
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, true
}

// periodTiming 推算第一节开始时间与每节时长
// 每节时长 = (结束 - 开始) / 每日节数，无法推算时使用配置默认值
func periodTiming(meta timetable.Metadata, cfg *config.ExportConfig, periods int) (time.Duration, time.Duration) {
	start, ok := time.Duration(0), false
	if meta.StartTime != nil {
		start, ok = parseClock(*meta.StartTime)
	}
	if !ok {
		start, ok = parseClock(cfg.DefaultStartTime)
	}
	if !ok {
		start = 9 * time.Hour
	}

	length := cfg.DefaultPeriod
	if length <= 0 {
		length = time.Hour
	}
	if meta.EndTime != nil && periods > 0 {
		if end, ok := parseClock(*meta.EndTime); ok && end > start {
			length = (end - start) / time.Duration(periods)
		}
	}
	return start, length
}

func renderICS(tt *model.Timetable, sched timetable.Schedule, cfg *config.ExportConfig) ([]byte, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}

	table := sched.Table()
	periods := len(table) - 1
	start, length := periodTiming(sched.Metadata, cfg, periods)

	// 从创建时间之后的第一个周一开始重复
	created := sched.Metadata.CreatedAt.In(loc)
	monday := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, loc)
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, 1)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//DinaYojana//Timetable//EN")
	cal.SetXWRCalName(tt.Name)
	cal.SetXWRTimezone(loc.String())

	header := table[0]
	for p, row := range table[1:] {
		for d := 1; d < len(row); d++ {
			subject := row[d]
			if subject == "" || timetable.IsBreak(subject) {
				continue
			}
			dtStart := monday.AddDate(0, 0, d-1).Add(start + time.Duration(p)*length)

			event := cal.AddEvent(fmt.Sprintf("%s-%d-%d@dinayojana", tt.TimetableID, d, p+1))
			event.SetDtStampTime(sched.Metadata.CreatedAt)
			event.SetStartAt(dtStart)
			event.SetEndAt(dtStart.Add(length))
			event.SetSummary(subject)
			event.SetDescription(fmt.Sprintf("%s · %s · %s", tt.Name, header[d], row[0]))
			event.AddRrule("FREQ=WEEKLY")
		}
	}

	return []byte(cal.Serialize()), nil
}

// ── HTML 预览 ──

// markdownTable 将课表转为 GFM 表格
func markdownTable(title string, table [][]string) string {
	var b strings.Builder
	b.WriteString("# " + escapeMarkdown(title) + "\n\n")
	for r, row := range table {
		b.WriteString("|")
		for _, value := range row {
			b.WriteString(" " + escapeMarkdown(value) + " |")
		}
		b.WriteString("\n")
		if r == 0 {
			b.WriteString("|")
			for range row {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ").Replace(s)
}

func renderHTML(title string, sched timetable.Schedule) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdownTable(title, sched.Table())), &body); err != nil {
		return nil, err
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	page.WriteString(html.EscapeString(title))
	page.WriteString("</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
