package intake

import (
	"fmt"
	"strings"
	"time"
)

// ── 会话状态机 ──
//
// Session 是一次排课对话的完整状态，作为值在纯函数之间传递：
//   collecting → subject_hours → generating → complete
//   任意阶段 → cancelled（用户主动退出）
//
// 进度 (Section, Step) 只会前进，不回退、不跳过；非法输入不改变进度。
// 机器人消息先进入 Outbox，由调用方通过 Advance 逐条取出，取出顺序即入队顺序。

// Phase 会话阶段
type Phase string

const (
	PhaseCollecting   Phase = "collecting"
	PhaseSubjectHours Phase = "subject_hours"
	PhaseGenerating   Phase = "generating"
	PhaseComplete     Phase = "complete"
	PhaseCancelled    Phase = "cancelled"
)

// Outcome Submit 的处理结果
type Outcome int

const (
	OutcomeIgnored      Outcome = iota // 空输入或当前阶段不接收回答
	OutcomeRejected                    // 校验失败，重问同一问题
	OutcomeAdvanced                    // 已接受并推进到下一问题
	OutcomeSectionsDone                // 最后一个问题已回答，进入科目课时子流程
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeSectionsDone:
		return "sections_done"
	default:
		return "ignored"
	}
}

// 子流程为每个科目生成的周课时范围（闭区间）
const (
	MinSubjectHours = 3
	MaxSubjectHours = 6
)

const welcomeText = "Hello! I'm your DinaYojana Assistant. I'll help you create a personalized weekly timetable step by step. " +
	"Let's start by selecting a template layout that suits your preferences."

const (
	invalidInputText = "I'm sorry, that doesn't seem to be a valid input for this question. Please try again."
	transitionFormat = "Great! Now let's move to %s."
	hoursIntroText   = "Perfect! Now I need to know how many hours per week each subject requires."
	hoursQuestionFmt = "How many hours per week do you need for %s?"
	hoursAnswerFmt   = "%d hours"
	generatingText   = "Excellent! I have all the information needed. Let me generate your personalized timetable using the selected template..."
	generatedText    = "Your timetable has been successfully generated! You can now review, edit, and submit it for HOD approval."
)

// Sender 消息发送方
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// MessageKind 消息类型
type MessageKind string

const (
	KindText              MessageKind = "text"
	KindTemplateSelection MessageKind = "template_selection"
)

// Message 一条对话消息，创建后不可变。仅用于展示，不参与生成逻辑。
type Message struct {
	ID      int         `json:"id"`
	Text    string      `json:"text"`
	Sender  Sender      `json:"sender"`
	Kind    MessageKind `json:"kind"`
	Options []string    `json:"options,omitempty"`
	DelayMS int64       `json:"delay_ms"` // 展示节奏提示，客户端可忽略
	At      time.Time   `json:"at"`
}

// Position 当前问题位置
type Position struct {
	Section int `json:"section"`
	Step    int `json:"step"`
}

// Pacing 消息展示节奏
type Pacing struct {
	Prompt     time.Duration `json:"prompt"`
	Transition time.Duration `json:"transition"`
}

// DefaultPacing 默认展示节奏
var DefaultPacing = Pacing{Prompt: 500 * time.Millisecond, Transition: time.Second}

// Session 一次对话的全部状态
type Session struct {
	ID       string       `json:"id"`
	Position Position     `json:"position"`
	Phase    Phase        `json:"phase"`
	Record   AnswerRecord `json:"record"`
	Messages []Message    `json:"messages"`
	Outbox   []Message    `json:"outbox"`
	NextSeq  int          `json:"next_seq"`
	Pacing   Pacing       `json:"pacing"`
}

// NewSession 使用默认节奏创建会话
func NewSession(id string, now time.Time) Session {
	return NewSessionWithPacing(id, now, DefaultPacing)
}

// NewSessionWithPacing 创建会话：欢迎语与第一个问题（模板选择）进入 Outbox
func NewSessionWithPacing(id string, now time.Time, pacing Pacing) Session {
	s := Session{
		ID:      id,
		Phase:   PhaseCollecting,
		NextSeq: 1,
		Pacing:  pacing,
	}
	s.enqueue(SenderBot, KindText, welcomeText, nil, 0, now)
	s.enqueuePrompt(pacing.Transition, now)
	return s
}

// CurrentPrompt 返回当前待回答的问题；不在收集阶段时 ok=false
func (s Session) CurrentPrompt() (string, bool) {
	if s.Phase != PhaseCollecting {
		return "", false
	}
	return Prompt(s.Position.Section, s.Position.Step)
}

// Submit 处理用户一次回答
func Submit(s Session, raw string, now time.Time) (Session, Outcome) {
	if s.Phase != PhaseCollecting || strings.TrimSpace(raw) == "" {
		return s, OutcomeIgnored
	}

	next := s.clone()
	next.enqueue(SenderUser, KindText, raw, nil, 0, now)

	pos := next.Position
	if !Valid(pos.Section, pos.Step, raw) {
		next.enqueue(SenderBot, KindText, invalidInputText, nil, next.Pacing.Prompt.Milliseconds(), now)
		next.enqueuePrompt(next.Pacing.Transition, now)
		return next, OutcomeRejected
	}

	next.Record = Apply(next.Record, pos.Section, pos.Step, raw)
	return next, next.advance(now)
}

// advance 线性推进：Step+1，越过本节则进入下一节第 0 步，越过最后一节进入子流程
func (s *Session) advance(now time.Time) Outcome {
	step := s.Position.Step + 1
	if step < StepCount(s.Position.Section) {
		s.Position.Step = step
		s.enqueuePrompt(s.Pacing.Prompt, now)
		return OutcomeAdvanced
	}

	section := s.Position.Section + 1
	s.Position = Position{Section: section}
	if section < SectionCount() {
		s.enqueue(SenderBot, KindText, fmt.Sprintf(transitionFormat, SectionName(section)), nil, s.Pacing.Prompt.Milliseconds(), now)
		s.enqueuePrompt(s.Pacing.Transition, now)
		return OutcomeAdvanced
	}

	s.Phase = PhaseSubjectHours
	return OutcomeSectionsDone
}

// CollectSubjectHours 科目课时子流程：每个科目一问一答，课时取 [3,6] 内的随机值。
// 这是占位策略而非真实询问。仅在 subject_hours 阶段生效，完成后进入 generating。
func CollectSubjectHours(s Session, rng Rand, now time.Time) Session {
	if s.Phase != PhaseSubjectHours {
		return s
	}

	next := s.clone()
	next.enqueue(SenderBot, KindText, hoursIntroText, nil, next.Pacing.Transition.Milliseconds(), now)

	hours := make(map[string]int, len(next.Record.Subjects))
	for _, subject := range next.Record.Subjects {
		h := MinSubjectHours + rng.IntN(MaxSubjectHours-MinSubjectHours+1)
		hours[subject] = h
		next.enqueue(SenderBot, KindText, fmt.Sprintf(hoursQuestionFmt, subject), nil, next.Pacing.Prompt.Milliseconds(), now)
		next.enqueue(SenderUser, KindText, fmt.Sprintf(hoursAnswerFmt, h), nil, next.Pacing.Prompt.Milliseconds(), now)
	}
	next.Record.SubjectHours = hours

	next.enqueue(SenderBot, KindText, generatingText, nil, next.Pacing.Prompt.Milliseconds(), now)
	next.Phase = PhaseGenerating
	return next
}

// Complete 标记课表已生成，追加完成提示
func Complete(s Session, now time.Time) Session {
	if s.Phase != PhaseGenerating {
		return s
	}
	next := s.clone()
	next.enqueue(SenderBot, KindText, generatedText, nil, next.Pacing.Transition.Milliseconds(), now)
	next.Phase = PhaseComplete
	return next
}

// Cancel 用户退出对话：未展示的消息被丢弃
func Cancel(s Session) Session {
	next := s.clone()
	next.Outbox = nil
	next.Phase = PhaseCancelled
	return next
}

// Advance 取出最早入队的一条消息并追加到 Messages
func Advance(s Session) (Session, Message, bool) {
	if len(s.Outbox) == 0 {
		return s, Message{}, false
	}
	next := s.clone()
	m := next.Outbox[0]
	next.Outbox = next.Outbox[1:]
	next.Messages = append(next.Messages, m)
	return next, m, true
}

// Drain 依次取出所有待展示消息
func Drain(s Session) (Session, []Message) {
	var out []Message
	for {
		var m Message
		var ok bool
		s, m, ok = Advance(s)
		if !ok {
			return s, out
		}
		out = append(out, m)
	}
}

func (s *Session) enqueuePrompt(delay time.Duration, now time.Time) {
	text, ok := Prompt(s.Position.Section, s.Position.Step)
	if !ok {
		return
	}
	if s.Position.Section == SectionTemplate && s.Position.Step == 0 {
		s.enqueue(SenderBot, KindTemplateSelection, text, Templates(), delay.Milliseconds(), now)
		return
	}
	s.enqueue(SenderBot, KindText, text, nil, delay.Milliseconds(), now)
}

func (s *Session) enqueue(sender Sender, kind MessageKind, text string, options []string, delayMS int64, now time.Time) {
	s.Outbox = append(s.Outbox, Message{
		ID:      s.NextSeq,
		Text:    text,
		Sender:  sender,
		Kind:    kind,
		Options: options,
		DelayMS: delayMS,
		At:      now,
	})
	s.NextSeq++
}

// clone 复制切片与记录，保证返回的新会话不与旧值共享可变内存
func (s Session) clone() Session {
	out := s
	out.Record = s.Record.Clone()
	if s.Messages != nil {
		out.Messages = append([]Message(nil), s.Messages...)
	}
	if s.Outbox != nil {
		out.Outbox = append([]Message(nil), s.Outbox...)
	}
	return out
}
