package redis

const keyPrefix = "stars-casino:"

// DepositConfirmLockKey — блокировка обработки подтверждения оплаты по токену пополнения.
func DepositConfirmLockKey(token string) string {
	return keyPrefix + "deposit:confirm:lock:" + token
}
