package engine

import (
	"crypto/rand"
	"fmt"
	"io"
)

// maior múltiplo de 6 que cabe em um byte (252 = 6 * 42)
const maxFairByte = 252

// DiceRoller gera rolagens justas de dois dados a partir de uma fonte
// de bytes aleatórios (crypto/rand em produção).
type DiceRoller struct {
	src io.Reader
}

func NewDiceRoller() *DiceRoller {
	return &DiceRoller{src: rand.Reader}
}

// NewDiceRollerFrom usa uma fonte alternativa de bytes (testes)
func NewDiceRollerFrom(src io.Reader) *DiceRoller {
	return &DiceRoller{src: src}
}

// Die sorteia um valor de 1 a 6 sem viés de módulo: bytes fora de
// [0, 252) são descartados e ressorteados (rejection sampling).
func (d *DiceRoller) Die() (int, error) {
	var b [1]byte
	for {
		if _, err := io.ReadFull(d.src, b[:]); err != nil {
			return 0, fmt.Errorf("read random byte: %w", err)
		}
		if b[0] < maxFairByte {
			return int(b[0])%6 + 1, nil
		}
	}
}

// Roll sorteia os dois dados de uma rodada, de forma independente
func (d *DiceRoller) Roll() (dieA, dieB int, err error) {
	if dieA, err = d.Die(); err != nil {
		return 0, 0, err
	}
	if dieB, err = d.Die(); err != nil {
		return 0, 0, err
	}
	return dieA, dieB, nil
}
