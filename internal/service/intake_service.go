package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dinayojana/config"
	"dinayojana/internal/dto"
	"dinayojana/internal/intake"
	"dinayojana/internal/model"
	"dinayojana/internal/repository"
	"dinayojana/internal/timetable"
	pkgerrors "dinayojana/pkg/errors"
)

var (
	// ErrIntakeFinished 对话已结束（已生成课表），不再接收回答
	ErrIntakeFinished = errors.New("对话已结束，请重新开始")
	// ErrPeriodsTooLarge 每日节数超过 intake.max_periods_per_day
	ErrPeriodsTooLarge = errors.New("每日节数超出上限")
)

// defaultMaxPeriodsPerDay 配置未设置上限时使用
const defaultMaxPeriodsPerDay = 24

// IntakeService 排课对话业务接口
//
// 每个用户同时只有一个对话；同一用户的调用串行执行。
// 最后一个问题被接受后，在同一次 Answer 调用中完成课时子流程、生成并保存课表。
type IntakeService interface {
	Start(ctx context.Context, userID string) (*dto.IntakeResponse, error)
	Get(ctx context.Context, userID string) (*dto.IntakeResponse, error)
	Answer(ctx context.Context, userID, departmentID, input string) (*dto.AnswerResponse, error)
	Advance(ctx context.Context, userID string) (*dto.AdvanceResponse, error)
	Cancel(ctx context.Context, userID string) error
}

type intakeService struct {
	cfg    *config.IntakeConfig
	repo   *repository.Repository
	store  SessionStore
	locks  *keyedMutex
	now    func() time.Time
	logger *zap.Logger
}

// NewIntakeService 创建 IntakeService 实例
func NewIntakeService(
	cfg *config.IntakeConfig,
	repo *repository.Repository,
	store SessionStore,
	logger *zap.Logger,
) IntakeService {
	return &intakeService{
		cfg:    cfg,
		repo:   repo,
		store:  store,
		locks:  newKeyedMutex(),
		now:    time.Now,
		logger: logger,
	}
}

func (s *intakeService) Start(ctx context.Context, userID string) (*dto.IntakeResponse, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()
	pacing := intake.Pacing{Prompt: s.cfg.PromptDelay, Transition: s.cfg.TransitionDelay}
	conv := &Conversation{
		Session:   intake.NewSessionWithPacing(uuid.New().String(), now, pacing),
		UserID:    userID,
		Seed:      s.seed(now),
		UpdatedAt: now,
	}

	if err := s.store.Save(ctx, conv, s.cfg.SessionTTL); err != nil {
		s.logger.Error("保存对话失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("开始排课对话",
		zap.String("user_id", userID),
		zap.String("session_id", conv.Session.ID),
	)
	return toIntakeResponse(conv), nil
}

func (s *intakeService) Get(ctx context.Context, userID string) (*dto.IntakeResponse, error) {
	conv, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toIntakeResponse(conv), nil
}

func (s *intakeService) Answer(ctx context.Context, userID, departmentID, input string) (*dto.AnswerResponse, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	conv, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conv.Session.Phase != intake.PhaseCollecting {
		return nil, ErrIntakeFinished
	}

	now := s.now()
	next, outcome := intake.Submit(conv.Session, input, now)

	// 节数过大的回答不落盘，停留在当前问题
	if err := s.checkPeriods(next.Record); err != nil {
		s.logger.Warn("每日节数超出上限",
			zap.String("user_id", userID),
			zap.Int("periods_per_day", *next.Record.PeriodsPerDay),
		)
		return nil, err
	}

	if outcome == intake.OutcomeSectionsDone {
		// 课时子流程与生成共用同一随机源，保证同一 Seed 可复现
		rng := intake.NewRand(conv.Seed)
		next = intake.CollectSubjectHours(next, rng, now)
		schedule := timetable.Synthesize(next.Record, rng, now)

		// 先落盘预分配的课表 ID，之后无论哪一步失败，重新提交都不会重复保存
		if conv.TimetableID == "" {
			conv.TimetableID = uuid.New().String()
			conv.UpdatedAt = now
			if err := s.store.Save(ctx, conv, s.cfg.SessionTTL); err != nil {
				s.logger.Error("保存对话失败", zap.String("user_id", userID), zap.Error(err))
				return nil, err
			}
		}

		tt, err := s.saveTimetable(ctx, conv.TimetableID, userID, departmentID, schedule)
		if err != nil {
			// 对话停留在最后一题，用户可重新提交
			return nil, err
		}
		next = intake.Complete(next, now)

		s.logger.Info("课表已生成",
			zap.String("user_id", userID),
			zap.String("timetable_id", tt.TimetableID),
			zap.String("name", tt.Name),
		)
	}

	conv.Session = next
	conv.UpdatedAt = now
	if err := s.store.Save(ctx, conv, s.cfg.SessionTTL); err != nil {
		s.logger.Error("保存对话失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	accepted := outcome == intake.OutcomeAdvanced || outcome == intake.OutcomeSectionsDone
	return &dto.AnswerResponse{
		Accepted: accepted,
		Outcome:  outcome.String(),
		Session:  *toIntakeResponse(conv),
	}, nil
}

func (s *intakeService) Advance(ctx context.Context, userID string) (*dto.AdvanceResponse, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	conv, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, msg, ok := intake.Advance(conv.Session)
	if !ok {
		return &dto.AdvanceResponse{}, nil
	}

	conv.Session = next
	conv.UpdatedAt = s.now()
	if err := s.store.Save(ctx, conv, s.cfg.SessionTTL); err != nil {
		s.logger.Error("保存对话失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.AdvanceResponse{Message: &msg, Remaining: len(next.Outbox)}, nil
}

// Cancel 用户退出对话，丢弃进行中的状态；已保存的课表不受影响
func (s *intakeService) Cancel(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	conv, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	cancelled := intake.Cancel(conv.Session)
	if err := s.store.Delete(ctx, userID); err != nil {
		s.logger.Error("删除对话失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.logger.Info("排课对话已取消",
		zap.String("user_id", userID),
		zap.String("session_id", cancelled.ID),
		zap.Int("answered_messages", len(cancelled.Messages)),
	)
	return nil
}

// ── 内部方法 ──

func (s *intakeService) load(ctx context.Context, userID string) (*Conversation, error) {
	conv, err := s.store.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrSessionNotFound) {
			s.logger.Error("读取对话失败", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, err
	}
	return conv, nil
}

// checkPeriods 每日节数决定网格大小，超出上限时拒绝
func (s *intakeService) checkPeriods(rec intake.AnswerRecord) error {
	limit := s.cfg.MaxPeriodsPerDay
	if limit <= 0 {
		limit = defaultMaxPeriodsPerDay
	}
	if rec.PeriodsPerDay != nil && *rec.PeriodsPerDay > limit {
		return ErrPeriodsTooLarge
	}
	return nil
}

// seed 配置了 random_seed 时所有对话使用同一种子，否则按时间取种子
func (s *intakeService) seed(now time.Time) uint64 {
	if s.cfg.RandomSeed != 0 {
		return s.cfg.RandomSeed
	}
	return uint64(now.UnixNano())
}

// saveTimetable 以 "Timetable N" 命名保存课表，N 为该用户已有课表数 + 1。
// id 对应的课表已存在时直接返回，不再插入。
func (s *intakeService) saveTimetable(ctx context.Context, id, userID, departmentID string, schedule timetable.Schedule) (*model.Timetable, error) {
	existing, err := s.repo.Timetable.GetByID(ctx, id)
	if err == nil {
		s.logger.Info("课表已保存，跳过重复写入", zap.String("timetable_id", id))
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询课表失败", zap.String("timetable_id", id), zap.Error(err))
		return nil, err
	}

	structure, err := json.Marshal(schedule.Structure)
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(schedule.Metadata)
	if err != nil {
		return nil, err
	}

	tt := &model.Timetable{
		TimetableID:  id,
		OwnerID:      userID,
		DepartmentID: departmentID,
		Structure:    datatypes.JSON(structure),
		Metadata:     datatypes.JSON(metadata),
		Status:       string(schedule.Metadata.Status),
	}
	if schedule.Metadata.Template != nil {
		tt.Template = *schedule.Metadata.Template
	}
	tt.CreatedBy = &userID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		count, err := tx.Timetable.CountByOwner(ctx, userID)
		if err != nil {
			return err
		}
		tt.Name = fmt.Sprintf("Timetable %d", count+1)
		return tx.Timetable.Create(ctx, tt)
	})
	if err != nil {
		s.logger.Error("保存课表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return tt, nil
}

func toIntakeResponse(conv *Conversation) *dto.IntakeResponse {
	sess := conv.Session
	resp := &dto.IntakeResponse{
		SessionID:   sess.ID,
		Phase:       sess.Phase,
		Section:     sess.Position.Section,
		SectionName: intake.SectionName(sess.Position.Section),
		Step:        sess.Position.Step,
		Record:      sess.Record,
		Messages:    sess.Messages,
		Pending:     sess.Outbox,
	}
	// 预分配的 ID 在课表真正保存前不对外暴露
	if sess.Phase == intake.PhaseComplete {
		resp.TimetableID = conv.TimetableID
	}
	if prompt, ok := sess.CurrentPrompt(); ok {
		resp.Prompt = prompt
	}
	if resp.Messages == nil {
		resp.Messages = []intake.Message{}
	}
	if resp.Pending == nil {
		resp.Pending = []intake.Message{}
	}
	return resp
}
