package ensdata_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/mocks"
	"github.com/feral-file/castindex/internal/providers/ensdata"
)

func TestEnsdataClient_Resolve(t *testing.T) {
	address := "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

	tests := []struct {
		name     string
		response []byte
		respErr  error
		wantNil  bool
		wantErr  bool
		wantEns  string
	}{
		{
			name:     "full record",
			response: []byte(`{"address":"0xd8da6bf26964af9d7eed9e03e53415d37aa96045","ens":"vitalik.eth","twitter":"VitalikButerin","github":null,"avatar":"https://x"}`),
			wantEns:  "vitalik.eth",
		},
		{
			name:    "unknown address",
			respErr: domain.ErrNotFound,
			wantNil: true,
		},
		{
			name:    "upstream failure",
			respErr: domain.ErrRetriesExhausted,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockHTTPClient := mocks.NewMockHTTPClient(ctrl)
			mockHTTPClient.EXPECT().
				GetBytes(gomock.Any(), "https://api.ensdata.net/"+address, nil).
				Return(tt.response, tt.respErr)

			client := ensdata.NewClient(mockHTTPClient, "https://api.ensdata.net", adapter.NewJSON())
			record, err := client.Resolve(context.Background(), address)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, record)
				return
			}

			require.NotNil(t, record)
			assert.Equal(t, tt.wantEns, *record.Ens)
			assert.Nil(t, record.Github)
			assert.JSONEq(t, string(tt.response), string(record.Raw))
		})
	}
}
