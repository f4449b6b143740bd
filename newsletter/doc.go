// Package newsletter recebe inscrições do formulário do site e as repassa
// para a API de assinantes do Buttondown.
//
// Pipeline de Service.Submit (o primeiro estágio que falha decide):
//
//  1. honeypot preenchido     -> 400 invalid_request (não consome cota)
//  2. janela deslizante       -> 429 rate_limit
//  3. formato do e-mail       -> 400 invalid_email
//  4. chave da API ausente    -> 500 config_error (logado)
//  5. relay para o Buttondown -> 200, ou erro genérico no status do upstream
//
// "Já inscrito" no upstream é sucesso: a intenção do visitante já está
// satisfeita. Detalhes de configuração e do upstream nunca vão para a
// resposta, apenas para o log.
package newsletter
