package timetable

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// 审核事件
const (
	EventApprove = "approve"
	EventReject  = "reject"
)

// ErrInvalidTransition 当前状态不允许该审核操作
var ErrInvalidTransition = errors.New("当前状态不允许该审核操作")

// NewReviewFSM 以当前状态构造审核状态机：
//
//	pending_approval --approve--> approved
//	pending_approval --reject-->  rejected
func NewReviewFSM(current Status) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: EventApprove, Src: []string{string(StatusPendingApproval)}, Dst: string(StatusApproved)},
			{Name: EventReject, Src: []string{string(StatusPendingApproval)}, Dst: string(StatusRejected)},
		},
		fsm.Callbacks{},
	)
}

// NextStatus 计算事件作用后的状态
func NextStatus(ctx context.Context, current Status, event string) (Status, error) {
	m := NewReviewFSM(current)
	if err := m.Event(ctx, event); err != nil {
		return current, fmt.Errorf("%w: %s -> %s: %v", ErrInvalidTransition, current, event, err)
	}
	return Status(m.Current()), nil
}

// CanReview 当前状态是否还可审核
func CanReview(current Status) bool {
	return NewReviewFSM(current).Can(EventApprove)
}
