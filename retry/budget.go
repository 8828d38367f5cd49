// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"golang.org/x/time/rate"

	"github.com/gogama/httptask/request"
)

// Budget constructs a retry decider that allows a retry only while the
// token bucket l has a token to spend. Each positive decision consumes
// one token.
//
// Share one limiter between many clients or executions to cap the
// aggregate retry rate, so that a failing remote service is not hit by
// a retry storm:
//
//	budget := retry.Budget(rate.NewLimiter(rate.Limit(10), 20))
//	decider := retry.DefaultDecider.And(budget)
//
// Put Budget last in an And chain so a token is only spent when every
// other decider wants to retry. A nil limiter never allows a retry.
func Budget(l *rate.Limiter) DeciderFunc {
	return func(_ *request.Execution) bool {
		return l != nil && l.Allow()
	}
}
