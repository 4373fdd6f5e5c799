// service содержит логику рассылки уведомлений по изменениям документов.
//
// Каждый обработчик работает только со снимками документа «до/после»: вычисляет
// получателей, разрешает их push-токены и отправляет уведомления через шлюз.
// Обработчики не возвращают ошибок. Отсутствующие данные дают тихий no-op,
// сбои отправки логируются со стеком и проглатываются.
package service

import (
	"time"

	"github.com/fraternet/notify-service/internal/config"
	"github.com/fraternet/notify-service/internal/messaging"
	"github.com/fraternet/notify-service/internal/storage"
)

const (
	defaultTopic      = "all_users"
	defaultDateLayout = "Monday, January 2 at 3:04 PM"
)

// Service: обработчики уведомлений.
type Service struct {
	users   storage.Users
	gateway messaging.Gateway
	cfg     config.Config
	loc     *time.Location
}

// New создает новый экземпляр Service.
// Неизвестная временная зона заменяется на UTC (конфиг валидирует её заранее).
func New(users storage.Users, gateway messaging.Gateway, cfg config.Config) *Service {
	loc, err := time.LoadLocation(cfg.Events.Timezone)
	if err != nil || cfg.Events.Timezone == "" {
		loc = time.UTC
	}

	if cfg.Events.DateLayout == "" {
		cfg.Events.DateLayout = defaultDateLayout
	}

	if cfg.Messaging.BroadcastTopic == "" {
		cfg.Messaging.BroadcastTopic = defaultTopic
	}

	return &Service{
		users:   users,
		gateway: gateway,
		cfg:     cfg,
		loc:     loc,
	}
}
