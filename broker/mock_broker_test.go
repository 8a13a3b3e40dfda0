/*
Copyright 2017 Google Inc. All Rights Reserved.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
)

func TestMockConsumerCommitCalledWithFetchedMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockConsumer := NewMockConsumer(ctrl)
	ctx := context.Background()
	want := Message{Topic: "traces", Partition: 0, Offset: 7, Value: []byte("payload")}

	mockConsumer.EXPECT().Receive(ctx).Return(want, nil)
	mockConsumer.EXPECT().Commit(ctx, want).Return(nil)

	got, err := mockConsumer.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive() returned error: %v", err)
	}
	if err := mockConsumer.Commit(ctx, got); err != nil {
		t.Fatalf("Commit() returned error: %v", err)
	}
}

func TestMockConsumerReceiveErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockConsumer := NewMockConsumer(ctrl)
	ctx := context.Background()
	wantErr := errors.New("broker unavailable")

	mockConsumer.EXPECT().Receive(ctx).Return(Message{}, wantErr)

	_, err := mockConsumer.Receive(ctx)
	if err != wantErr {
		t.Errorf("Receive() error = %v, want %v", err, wantErr)
	}
}
