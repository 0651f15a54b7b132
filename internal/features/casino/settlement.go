package casino

// Outcome — итог спина для одного счёта.
type Outcome struct {
	WinAmount     int64
	BalanceAfter  int64
	BoostBefore   bool
	BoostAfter    bool
	BoostConsumed bool
}

// Settle считает итог спина. Чистая функция, проверки ставки и баланса делает вызывающий.
//
// Буст — одноразовый: выпавший буст выставляет флаг (повторный не копится),
// любой следующий не-бустовый спин флаг гасит, а если он выигрышный — удваивает выигрыш.
func Settle(balance int64, hasBoost bool, bet int64, p Prize) Outcome {
	o := Outcome{BoostBefore: hasBoost}

	if p.IsBoostGrant {
		o.BoostAfter = true
	} else {
		o.BoostConsumed = hasBoost
		if p.IsWin() {
			o.WinAmount = p.Payout(bet)
			if o.BoostConsumed {
				o.WinAmount *= 2
			}
		}
	}

	o.BalanceAfter = balance - bet + o.WinAmount
	return o
}
