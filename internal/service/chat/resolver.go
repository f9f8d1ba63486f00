package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ashwinyue/mindsage/internal/model"
	"github.com/ashwinyue/mindsage/internal/repository"
)

// 内部 ID 形态：24 位十六进制
var internalIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// isInvalidRef 判断引用是否是语法上不可用的占位值
func isInvalidRef(ref string) bool {
	return ref == "" || ref == "undefined" || ref == "null"
}

// resolveSession 按引用形态决定查找方式：
// 24 位十六进制走内部 ID，其余一律按外部 ID 查。
// 调用方在不同界面可能合法地持有任意一种形态，两种入口等价。
func (s *Service) resolveSession(ctx context.Context, ref string) (*model.ChatSession, error) {
	if isInvalidRef(ref) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var (
		session *model.ChatSession
		err     error
	)
	if internalIDPattern.MatchString(ref) {
		session, err = s.repo.GetSessionByInternalID(sctx, ref)
	} else {
		session, err = s.repo.GetSessionByExternalID(sctx, ref)
	}

	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return session, nil
}
