package intake

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	digitsPattern = regexp.MustCompile(`^\d+$`)
	// 时间格式校验刻意不锚定：只要包含 "H:MM AM/PM" 片段即视为合法
	clockPattern = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(AM|PM)`)
	yesNoPattern = regexp.MustCompile(`(?i)^(yes|no)$`)
)

// Valid 校验 (section, step) 处的原始输入。纯函数，输入先去除首尾空白。
// 返回 false 表示 InvalidStepInput：调用方应原样重问当前问题，不推进进度。
func Valid(section, step int, raw string) bool {
	in := strings.TrimSpace(raw)

	switch section {
	case SectionTemplate:
		return isTemplate(in)

	case SectionGeneral:
		switch step {
		case 0, 1: // 每日工作小时数、每日节数
			return isCount(in, 1)
		case 2, 3: // 开始/结束时间
			return clockPattern.MatchString(in)
		}

	case SectionSubjects:
		switch step {
		case 0, 3, 4, 5: // 数量类问题
			return isCount(in, 0)
		}

	case SectionBreaks:
		switch step {
		case 0, 1: // 休息时长（分钟）
			return isCount(in, 0)
		case 2:
			return yesNoPattern.MatchString(in)
		}
	}

	return in != ""
}

// parseCount 解析纯数字串；超出 int 范围视为非法
func parseCount(in string) (int, bool) {
	if !digitsPattern.MatchString(in) {
		return 0, false
	}
	n, err := strconv.Atoi(in)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isCount(in string, min int) bool {
	n, ok := parseCount(in)
	return ok && n >= min
}
