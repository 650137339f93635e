package domain

// ComputeScore 根据订单行为统计计算信用分，纯函数，无副作用。
// 规则：基准 70 分；无订单历史时直接返回基准分。
//   - 完成率 > 0.9 加 10，> 0.7 加 5
//   - 取消率 > 0.3 减 20，> 0.1 减 10
//   - 每笔支付失败减 5
//   - 商家评价均分 > 4.0 加 5，< 2.0 减 10（无评价时均分为 0，两个分支都不触发）
//   - 配送评价均分 > 4.0 加 3，< 2.0 减 5
//
// 浮点累加后向零截断为整数，再收敛到 [0,100]。
func ComputeScore(stats BehaviorStats) int {
	if stats.TotalOrders == 0 {
		return DefaultScore
	}

	score := float64(DefaultScore)

	completionRate := float64(stats.CompletedOrders) / float64(stats.TotalOrders)
	cancellationRate := float64(stats.CancelledOrders) / float64(stats.TotalOrders)

	if completionRate > 0.9 {
		score += 10
	} else if completionRate > 0.7 {
		score += 5
	}

	if cancellationRate > 0.3 {
		score -= 20
	} else if cancellationRate > 0.1 {
		score -= 10
	}

	if stats.FailedPayments > 0 {
		score -= float64(stats.FailedPayments) * 5
	}

	if stats.AvgRestaurantFeedback > 4.0 {
		score += 5
	} else if stats.AvgRestaurantFeedback < 2.0 && stats.AvgRestaurantFeedback > 0 {
		score -= 10
	}

	if stats.AvgDeliveryFeedback > 4.0 {
		score += 3
	} else if stats.AvgDeliveryFeedback < 2.0 && stats.AvgDeliveryFeedback > 0 {
		score -= 5
	}

	return ClampScore(int(score))
}

// ClampScore 将分值收敛到 [0,100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
