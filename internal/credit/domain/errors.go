package domain

import "errors"

var (
	// ErrUserNotFound 目标用户不存在，任何状态都未被修改
	ErrUserNotFound = errors.New("credit: user not found")

	// ErrStatsUnavailable 行为统计暂不可用。重算路径遇到它时降级为不改分的软失败，
	// 由触发方决定是否向用户透出警告，绝不中断触发它的业务流程。
	ErrStatsUnavailable = errors.New("credit: behavior stats unavailable")
)
