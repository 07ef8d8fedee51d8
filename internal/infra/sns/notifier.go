package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"go.uber.org/zap"
)

type API interface {
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// Notifier publishes failure notices to a topic. An empty topic ARN disables it.
type Notifier struct {
	client   API
	topicARN string
	logger   *zap.Logger
}

func NewNotifier(client API, topicARN string, logger *zap.Logger) *Notifier {
	return &Notifier{client: client, topicARN: topicARN, logger: logger}
}

func (n *Notifier) NotifyFailure(ctx context.Context, notice entity.FailureNotice) (bool, error) {
	if n.topicARN == "" || n.client == nil {
		return false, nil
	}

	out, err := n.client.Publish(ctx, &awssns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(notice.Subject()),
		Message:  aws.String(notice.Body()),
	})
	if err != nil {
		return false, fmt.Errorf("publish failure notice for video %d: %w", notice.VideoID, err)
	}

	n.logger.Info("failure notice published",
		zap.Int64("video_id", notice.VideoID),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return true, nil
}
