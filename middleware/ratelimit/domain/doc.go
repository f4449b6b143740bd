// Package domain define os contratos do controle de abuso do gateway:
// chave do cliente, decisões, limiters (token bucket e janela deslizante),
// pool de vagas e estatísticas.
//
// Não depende de net/http nem de implementações concretas.
package domain
