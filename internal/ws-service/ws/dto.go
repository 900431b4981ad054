package ws

import "encoding/json"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: ping (os eventos de rodada são globais, não há assinatura)
type ClientMsg struct {
	Type string `json:"type"`
}

// RoundEvent é o envelope repassado do canal Redis para os clientes,
// no mesmo formato publicado pelo game-service
type RoundEvent struct {
	Type    string          `json:"type"` // "round_opened" | "round_settled"
	Payload json.RawMessage `json:"payload"`
}
