package tasks

// The remote reports task names in Chinese; keep log output readable.
var nameTranslations = map[string]string{
	// Social media tasks
	"关注KiloEx X":   "Follow KiloEx X",
	"加入Discord":    "Join Discord",
	"加入Tg群组":       "Join Telegram Group",
	"加入Tg Channel": "Join Telegram Channel",
	"加速Tg Channel": "Speed Up Telegram Channel",

	// Mining tasks
	"勤劳矿工1": "Diligent Miner 1",
	"勤劳矿工2": "Diligent Miner 2",
	"勤劳矿工3": "Diligent Miner 3",
	"勤劳矿工4": "Diligent Miner 4",
	"勤劳矿工5": "Diligent Miner 5",

	// Trading tasks
	"模拟交易达人1": "Trading Master 1",
	"模拟交易达人2": "Trading Master 2",
	"模拟交易达人3": "Trading Master 3",
	"模拟交易达人4": "Trading Master 4",
	"模拟交易达人5": "Trading Master 5",

	// Referral tasks
	"邀请有礼": "Invite Rewards",
}

// TranslateName maps a remote task name to English; unknown names pass
// through unchanged.
func TranslateName(name string) string {
	if translated, ok := nameTranslations[name]; ok {
		return translated
	}
	return name
}
