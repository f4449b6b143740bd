package domain

import "context"

// SlotPool limita requisições simultâneas repassadas ao renderizador.
//
// Acquire bloqueia até obter vaga ou o ctx encerrar. O release retornado pode
// ser chamado mais de uma vez; só a primeira chamada devolve a vaga.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	InUse() int
	Cap() int
}
