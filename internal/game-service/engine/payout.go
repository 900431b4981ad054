package engine

// Multiplicadores de referência: apostar no "seven" paga mais porque a
// probabilidade (6/36) é menor que a do lado contrário (30/36).
const (
	DefaultLuckyMultiplier = 7
	DefaultSafeMultiplier  = 1
)

// Payout calcula o retorno total de uma aposta vencedora:
// o valor apostado de volta mais amount * multiplicador do lado escolhido.
func Payout(amount int64, luckySeven bool, luckyMult, safeMult int64) int64 {
	mult := safeMult
	if luckySeven {
		mult = luckyMult
	}
	return amount + amount*mult
}
