package intake

import "strings"

// AnswerRecord 一次问卷累积的结构化回答。
// 所有字段在被回答前均为空；字段一经写入，只有整体替换记录时才会被清除。
type AnswerRecord struct {
	Template             *string        `json:"template,omitempty"`
	WorkingHoursPerDay   *int           `json:"working_hours_per_day,omitempty"`
	PeriodsPerDay        *int           `json:"periods_per_day,omitempty"`
	StartTime            *string        `json:"start_time,omitempty"`
	EndTime              *string        `json:"end_time,omitempty"`
	SubjectCount         *int           `json:"subject_count,omitempty"`
	Subjects             []string       `json:"subjects,omitempty"`
	SubjectHours         map[string]int `json:"subject_hours,omitempty"`
	DoublePeriodSubjects []string       `json:"double_period_subjects,omitempty"`
	NumberOfLabs         *int           `json:"number_of_labs,omitempty"`
	LabDuration          *int           `json:"lab_duration,omitempty"`
	MinorSubjects        *int           `json:"minor_subjects,omitempty"`
	MorningBreak         *int           `json:"morning_break,omitempty"`
	LunchBreak           *int           `json:"lunch_break,omitempty"`
	WantsPreferredSlots  *bool          `json:"wants_preferred_slots,omitempty"`
}

// Clone 深拷贝，返回值与原记录不共享任何可变内存
func (r AnswerRecord) Clone() AnswerRecord {
	out := r
	out.Template = cloneString(r.Template)
	out.WorkingHoursPerDay = cloneInt(r.WorkingHoursPerDay)
	out.PeriodsPerDay = cloneInt(r.PeriodsPerDay)
	out.StartTime = cloneString(r.StartTime)
	out.EndTime = cloneString(r.EndTime)
	out.SubjectCount = cloneInt(r.SubjectCount)
	out.NumberOfLabs = cloneInt(r.NumberOfLabs)
	out.LabDuration = cloneInt(r.LabDuration)
	out.MinorSubjects = cloneInt(r.MinorSubjects)
	out.MorningBreak = cloneInt(r.MorningBreak)
	out.LunchBreak = cloneInt(r.LunchBreak)
	if r.WantsPreferredSlots != nil {
		v := *r.WantsPreferredSlots
		out.WantsPreferredSlots = &v
	}
	if r.Subjects != nil {
		out.Subjects = append([]string(nil), r.Subjects...)
	}
	if r.DoublePeriodSubjects != nil {
		out.DoublePeriodSubjects = append([]string(nil), r.DoublePeriodSubjects...)
	}
	if r.SubjectHours != nil {
		out.SubjectHours = make(map[string]int, len(r.SubjectHours))
		for k, v := range r.SubjectHours {
			out.SubjectHours[k] = v
		}
	}
	return out
}

// Apply 将 (section, step) 处的回答合并进记录，返回新记录，不修改入参。
// 调用方应先经 Valid 校验；无法解析的数字回答不会写入字段。
func Apply(rec AnswerRecord, section, step int, raw string) AnswerRecord {
	in := strings.TrimSpace(raw)
	out := rec.Clone()

	switch section {
	case SectionTemplate:
		out.Template = &in

	case SectionGeneral:
		switch step {
		case 0:
			setCount(&out.WorkingHoursPerDay, in)
		case 1:
			setCount(&out.PeriodsPerDay, in)
		case 2:
			out.StartTime = &in
		case 3:
			out.EndTime = &in
		}

	case SectionSubjects:
		switch step {
		case 0:
			setCount(&out.SubjectCount, in)
		case 1:
			out.Subjects = splitList(in)
		case 2:
			// "none" 表示没有双节课科目，字段保持未设置
			if !strings.EqualFold(in, "none") {
				out.DoublePeriodSubjects = splitList(in)
			}
		case 3:
			setCount(&out.NumberOfLabs, in)
		case 4:
			setCount(&out.LabDuration, in)
		case 5:
			setCount(&out.MinorSubjects, in)
		}

	case SectionBreaks:
		switch step {
		case 0:
			setCount(&out.MorningBreak, in)
		case 1:
			setCount(&out.LunchBreak, in)
		case 2:
			yes := strings.EqualFold(in, "yes")
			out.WantsPreferredSlots = &yes
		}
	}

	return out
}

// splitList 按逗号切分并去除每项首尾空白；空项保留
func splitList(in string) []string {
	parts := strings.Split(in, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func setCount(dst **int, in string) {
	if n, ok := parseCount(in); ok {
		*dst = &n
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
