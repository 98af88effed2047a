package wire

import (
	"github.com/lumbra2004/ryanswebservices-sub000/internal/api"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/handler"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/job"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/cron"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/es"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/kafka"
	pkgmongo "github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/mongo"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/stripe"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/repository"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
	ChatService  service.ChatService
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	userRolesRepo := repository.NewUserRolesRepo(db)
	convRepo := repository.NewConversationRepo(db)
	requestRepo := repository.NewServiceRequestRepo(db)
	contractRepo := repository.NewContractRepo(db)
	invoiceRepo := repository.NewInvoiceRepo(db)

	messageRepo := pkgmongo.NewMessageRepo(mongoDB)
	requestESRepo := es.NewRequestRepo(es.Client)
	stripeClient := stripe.NewClient(cfg.Stripe)

	userService := service.NewUserService(userRepo, userRolesRepo)
	userRolesService := service.NewUserRolesService(userRolesRepo, roleRepo)
	assistantService := service.NewAssistantService()
	chatService := service.NewChatService(convRepo, messageRepo, assistantService)
	requestService := service.NewRequestService(requestRepo, requestESRepo)
	contractService := service.NewContractService(contractRepo, requestRepo)
	billingService := service.NewBillingService(invoiceRepo, requestRepo, stripeClient)

	handlers := &api.HandlersGroup{
		UserHandler:    handler.NewUserHandler(userService, userRolesService),
		ChatHandler:    handler.NewChatHandler(chatService),
		WsHandler:      handler.NewWsHandler(chatService),
		RequestHandler: handler.NewRequestHandler(requestService),
		FileHandler:    handler.NewFileHandler(contractService),
		BillingHandler: handler.NewBillingHandler(billingService),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, requestESRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(job.NewTempCleanJob(), job.NewInvoiceSweepJob(billingService))

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
		ChatService:  chatService,
	}, nil
}
