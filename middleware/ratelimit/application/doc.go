// Package application contém os casos de uso de controle de abuso:
// throttle por token bucket (Service), janela deslizante do envio da
// newsletter (WindowService) e limite de concorrência (ConcurrencyService).
//
// Depende apenas de domain; não conhece net/http.
package application
