package intake

// ── 问卷脚本 ──
//
// 排课问卷由固定的若干 Section 组成，每个 Section 含有序的问题（Step）。
// 脚本在启动时定义且不可变；对外只暴露副本。

// Section 序号
const (
	SectionTemplate = iota // 模板选择
	SectionGeneral         // 基本信息
	SectionSubjects        // 科目与实验
	SectionBreaks          // 休息与特殊时段
)

// Section 一组有序问题
type Section struct {
	Name    string   `json:"name"`
	Prompts []string `json:"prompts"`
}

var templates = []string{
	"Classic Grid (simple rows & columns)",
	"Modern Color-Coded (subjects with colors)",
	"Weekly Calendar View (Google Calendar style)",
	"Compact View (minimal, condensed)",
}

var sections = []Section{
	{
		Name:    "Template Selection",
		Prompts: []string{"Select your preferred timetable template layout:"},
	},
	{
		Name: "General Information",
		Prompts: []string{
			"How many working hours per day do you have? (e.g., 8)",
			"How many periods per day do you need?",
			"What time does the first period start? (e.g., 9:00 AM)",
			"What time does the last period end? (e.g., 5:00 PM)",
		},
	},
	{
		Name: "Subjects & Labs",
		Prompts: []string{
			"How many subjects do you teach in total?",
			"Please enter the names of your subjects (comma-separated)",
			`Which subjects require double periods? (comma-separated, or type "none")`,
			"How many lab subjects do you have?",
			"How many periods does each lab session take? (e.g., 2)",
			"How many minor subjects do you have?",
		},
	},
	{
		Name: "Breaks & Special Slots",
		Prompts: []string{
			"How long is your morning break in minutes? (e.g., 15)",
			"How long is your lunch break in minutes? (e.g., 60)",
			"Do you have preferred time slots for certain subjects? (yes/no)",
		},
	},
}

// Templates 返回四种可选模板名称
func Templates() []string {
	out := make([]string, len(templates))
	copy(out, templates)
	return out
}

// Sections 返回问卷脚本副本
func Sections() []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		prompts := make([]string, len(s.Prompts))
		copy(prompts, s.Prompts)
		out[i] = Section{Name: s.Name, Prompts: prompts}
	}
	return out
}

// SectionCount Section 总数；Position.Section 等于该值即为终态
func SectionCount() int { return len(sections) }

// StepCount 指定 Section 的问题数，越界返回 0
func StepCount(section int) int {
	if section < 0 || section >= len(sections) {
		return 0
	}
	return len(sections[section].Prompts)
}

// Prompt 返回 (section, step) 对应的问题文本
func Prompt(section, step int) (string, bool) {
	if step < 0 || step >= StepCount(section) {
		return "", false
	}
	return sections[section].Prompts[step], true
}

// SectionName 返回 Section 名称
func SectionName(section int) string {
	if section < 0 || section >= len(sections) {
		return ""
	}
	return sections[section].Name
}

func isTemplate(s string) bool {
	for _, t := range templates {
		if s == t {
			return true
		}
	}
	return false
}
